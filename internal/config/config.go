// Package config resolves autopunch settings from defaults, dotenv files and
// the process environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/autopunch/autopunch/common"
	"github.com/autopunch/autopunch/internal/clock"
	"github.com/autopunch/autopunch/internal/scheduler"
	"github.com/autopunch/autopunch/internal/singleton"
	"github.com/autopunch/autopunch/internal/workflow"
	"github.com/joho/godotenv"
)

const (
	DefaultURL       = "http://localhost:6699/"
	DefaultCheckLead = 2 * time.Minute
	DefaultTesseract = "tesseract"
	DefaultLang      = "zh-TW"
)

// Config is the resolved configuration.
type Config struct {
	URL                string
	Headless           bool
	MaxRetry           int
	ConfigDir          string
	TZOffset           time.Duration
	TriggerHour        int
	PollInterval       time.Duration
	Lead               time.Duration
	CheckLead          time.Duration
	CookieFile         string
	Tesseract          string
	Lang               string
	ClaimRetentionDays int
	Debug              bool
}

// Default returns the built-in defaults with dir as the config directory.
func Default(dir string) *Config {
	return &Config{
		URL:                DefaultURL,
		MaxRetry:           workflow.DefaultMaxRetry,
		ConfigDir:          dir,
		TZOffset:           clock.DefaultOffset,
		TriggerHour:        clock.DefaultTriggerHour,
		PollInterval:       scheduler.DefaultPollInterval,
		CheckLead:          DefaultCheckLead,
		Tesseract:          DefaultTesseract,
		Lang:               DefaultLang,
		ClaimRetentionDays: singleton.DefaultRetentionDays,
	}
}

// Load resolves the configuration for the current process.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return LoadWith(os.LookupEnv, cwd)
}

// LoadWith resolves the configuration using lookup for the environment and
// cwd for the working-directory .env file.
func LoadWith(lookup func(string) (string, bool), cwd string) (*Config, error) {
	local, err := readEnvFile(filepath.Join(cwd, common.EnvFileName))
	if err != nil {
		return nil, err
	}

	dir, ok := lookup(common.ConfigDirEnv)
	if !ok || dir == "" {
		dir = local[common.ConfigDirEnv]
	}
	if dir == "" {
		if dir, err = DefaultConfigDir(); err != nil {
			return nil, err
		}
	}

	global, err := readEnvFile(filepath.Join(dir, common.EnvFileName))
	if err != nil {
		return nil, err
	}

	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok && v != "" {
			return v, true
		}
		if v, ok := local[key]; ok && v != "" {
			return v, true
		}
		v, ok := global[key]
		return v, ok && v != ""
	}

	c := Default(dir)
	p := parser{get: get}
	p.str(common.URLEnv, &c.URL)
	p.boolean(common.HeadlessEnv, &c.Headless)
	p.integer(common.MaxRetryEnv, &c.MaxRetry)
	p.offset(common.TZOffsetEnv, &c.TZOffset)
	p.integer(common.TriggerHourEnv, &c.TriggerHour)
	p.duration(common.PollIntervalEnv, &c.PollInterval)
	p.duration(common.LeadEnv, &c.Lead)
	p.duration(common.CheckLeadEnv, &c.CheckLead)
	p.str(common.CookieFileEnv, &c.CookieFile)
	p.str(common.TesseractEnv, &c.Tesseract)
	p.str(common.LangEnv, &c.Lang)
	p.integer(common.ClaimRetentionEnv, &c.ClaimRetentionDays)
	p.boolean(common.DebugEnv, &c.Debug)
	if p.err != nil {
		return nil, p.err
	}
	return c, c.Validate()
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxRetry < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", common.MaxRetryEnv))
	}
	if c.TriggerHour < 0 || c.TriggerHour > 23 {
		errs = append(errs, fmt.Errorf("%s must be between 0 and 23", common.TriggerHourEnv))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", common.PollIntervalEnv))
	}
	if c.Lead < 0 || c.CheckLead < 0 {
		errs = append(errs, errors.New("lead durations must not be negative"))
	}
	if c.ClaimRetentionDays < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", common.ClaimRetentionEnv))
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		errs = append(errs, fmt.Errorf("%s must be an http(s) URL", common.URLEnv))
	}
	return errors.Join(errs...)
}

// DefaultConfigDir returns <user config dir>/autopunch.
func DefaultConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, common.AppName), nil
}

// EnsureDir creates the config directory.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.ConfigDir, 0700)
}

func (c *Config) LogPath() string     { return filepath.Join(c.ConfigDir, common.LogFileName) }
func (c *Config) SocketPath() string  { return filepath.Join(c.ConfigDir, common.SocketFileName) }
func (c *Config) ArtifactDir() string { return filepath.Join(c.ConfigDir, common.ArtifactDirName) }
func (c *Config) EnvFilePath() string { return filepath.Join(c.ConfigDir, common.EnvFileName) }

func readEnvFile(path string) (map[string]string, error) {
	m, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return m, nil
}

type parser struct {
	get func(string) (string, bool)
	err error
}

func (p *parser) fail(key, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) boolean(key string, dst *bool) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = b
}

func (p *parser) integer(key string, dst *int) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = n
}

func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = d
}

func (p *parser) offset(key string, dst *time.Duration) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	d, err := clock.ParseOffset(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = d
}
