package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/autopunch/autopunch/common"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeEnv(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, common.EnvFileName), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadWith_Defaults(t *testing.T) {
	dir := t.TempDir()
	c, err := LoadWith(envMap(map[string]string{common.ConfigDirEnv: dir}), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}
	if c.URL != DefaultURL || c.MaxRetry != 10 || c.TriggerHour != 17 {
		t.Errorf("defaults = %+v", c)
	}
	if c.TZOffset != 8*time.Hour || c.PollInterval != 30*time.Second || c.CheckLead != 2*time.Minute {
		t.Errorf("durations = %+v", c)
	}
	if c.Lang != "zh-TW" || c.Tesseract != "tesseract" || c.ClaimRetentionDays != 7 {
		t.Errorf("strings = %+v", c)
	}
	if c.Headless || c.Debug {
		t.Errorf("flags = %+v", c)
	}
	if c.SocketPath() != filepath.Join(dir, "autopunch.sock") {
		t.Errorf("SocketPath = %q", c.SocketPath())
	}
}

func TestLoadWith_Precedence(t *testing.T) {
	dir := t.TempDir()
	cwd := t.TempDir()
	writeEnv(t, dir, "PUNCH_URL=http://global/\nMAX_RETRY=3\nHEADLESS=true\n")
	writeEnv(t, cwd, "MAX_RETRY=4\nPUNCH_LANG=en\n")
	env := map[string]string{
		common.ConfigDirEnv: dir,
		common.LangEnv:      "zh-TW",
		common.LeadEnv:      "90s",
		common.TZOffsetEnv:  "-05:30",
	}
	c, err := LoadWith(envMap(env), cwd)
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}
	if c.URL != "http://global/" {
		t.Errorf("URL = %q, want config-dir .env value", c.URL)
	}
	if c.MaxRetry != 4 {
		t.Errorf("MaxRetry = %d, want working-dir .env value", c.MaxRetry)
	}
	if c.Lang != "zh-TW" {
		t.Errorf("Lang = %q, want environment value", c.Lang)
	}
	if !c.Headless || c.Lead != 90*time.Second {
		t.Errorf("Headless=%v Lead=%v", c.Headless, c.Lead)
	}
	if c.TZOffset != -(5*time.Hour + 30*time.Minute) {
		t.Errorf("TZOffset = %v", c.TZOffset)
	}
}

func TestLoadWith_ConfigDirFromWorkingDirEnv(t *testing.T) {
	dir := t.TempDir()
	cwd := t.TempDir()
	writeEnv(t, cwd, common.ConfigDirEnv+"="+dir+"\n")
	writeEnv(t, dir, "PUNCH_TRIGGER_HOUR=18\n")
	c, err := LoadWith(envMap(nil), cwd)
	if err != nil {
		t.Fatalf("LoadWith: %v", err)
	}
	if c.ConfigDir != dir || c.TriggerHour != 18 {
		t.Errorf("ConfigDir=%q TriggerHour=%d", c.ConfigDir, c.TriggerHour)
	}
}

func TestLoadWith_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"bad int", common.MaxRetryEnv, "many", common.MaxRetryEnv},
		{"zero retry", common.MaxRetryEnv, "0", common.MaxRetryEnv},
		{"bad hour", common.TriggerHourEnv, "24", common.TriggerHourEnv},
		{"bad bool", common.HeadlessEnv, "sometimes", common.HeadlessEnv},
		{"bad duration", common.PollIntervalEnv, "soon", common.PollIntervalEnv},
		{"bad offset", common.TZOffsetEnv, "+25:00", common.TZOffsetEnv},
		{"bad url", common.URLEnv, "ftp://host/", common.URLEnv},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := map[string]string{common.ConfigDirEnv: t.TempDir(), tt.key: tt.val}
			_, err := LoadWith(envMap(env), t.TempDir())
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}
