package workflow

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys double as the English text.
const (
	msgDisabled         = "Auto clock-out is disabled, skipping this run"
	msgAlreadyDone      = "Already clocked in and out today"
	msgNoPunchIn        = "No clock-in record today, skipping"
	msgAuthRequired     = "Not logged in or page failed to load"
	msgSubmitted        = "Clocked out"
	msgDryRunOK         = "Test finished, challenge recognized"
	msgOCRTooShort      = "Challenge recognition failed or too short"
	msgSessionClosed    = "Page or browser closed, stopping"
	msgRetriesExhausted = "Still failing after %d attempts"
	msgError            = "Error: %s"
)

var zhTW = language.MustParse("zh-TW")

func init() {
	for key, zh := range map[string]string{
		msgDisabled:         "自動打卡已關閉，跳過本次執行",
		msgAlreadyDone:      "本日已完成刷進退，無需再打卡",
		msgNoPunchIn:        "今日無上班打卡記錄，跳過自動打卡",
		msgAuthRequired:     "未登入或頁面載入失敗",
		msgSubmitted:        "打卡成功",
		msgDryRunOK:         "測試完成，驗證碼辨識成功",
		msgOCRTooShort:      "驗證碼辨識失敗或太短",
		msgSessionClosed:    "頁面或瀏覽器已關閉，結束流程",
		msgRetriesExhausted: "%d 次嘗試後仍失敗",
		msgError:            "發生錯誤: %s",
	} {
		_ = message.SetString(zhTW, key, zh)
	}
}

// NewPrinter returns a printer for lang. Any Chinese tag selects the
// Traditional Chinese messages; everything else gets English.
func NewPrinter(lang string) *message.Printer {
	tag := language.English
	if base, _ := language.Make(lang).Base(); base.String() == "zh" {
		tag = zhTW
	}
	return message.NewPrinter(tag)
}
