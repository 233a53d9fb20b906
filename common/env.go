package common

// Environment variable names for configuration.
const (
	URLEnv            = "PUNCH_URL"
	HeadlessEnv       = "HEADLESS"
	MaxRetryEnv       = "MAX_RETRY"
	ConfigDirEnv      = "AUTOPUNCH_CONFIG_DIR"
	TZOffsetEnv       = "PUNCH_TZ_OFFSET"
	TriggerHourEnv    = "PUNCH_TRIGGER_HOUR"
	PollIntervalEnv   = "PUNCH_POLL_INTERVAL"
	LeadEnv           = "PUNCH_LEAD"
	CheckLeadEnv      = "PUNCH_CHECK_LEAD"
	CookieFileEnv     = "PUNCH_COOKIE_FILE"
	TesseractEnv      = "TESSERACT_PATH"
	LangEnv           = "PUNCH_LANG"
	ClaimRetentionEnv = "PUNCH_CLAIM_RETENTION_DAYS"

	// DebugEnv enables verbose logging.
	DebugEnv = "AUTOPUNCH_DEBUG"

	// PipeNameEnv overrides the Windows named pipe.
	PipeNameEnv = "AUTOPUNCH_PIPE_NAME"
)
