// Package app assembles the autopunch components from a resolved
// configuration. The CLI, the daemon and the native host all build their
// object graph here.
package app

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"

	"github.com/autopunch/autopunch/common"
	"github.com/autopunch/autopunch/internal/browsercookie"
	"github.com/autopunch/autopunch/internal/clock"
	"github.com/autopunch/autopunch/internal/config"
	"github.com/autopunch/autopunch/internal/ocr"
	"github.com/autopunch/autopunch/internal/offtime"
	"github.com/autopunch/autopunch/internal/page"
	"github.com/autopunch/autopunch/internal/scheduler"
	"github.com/autopunch/autopunch/internal/singleton"
	"github.com/autopunch/autopunch/internal/toggle"
	"github.com/autopunch/autopunch/internal/workflow"
	"github.com/autopunch/autopunch/pkg/logger"
)

// Overrides carry global CLI flags. Zero values leave the loaded
// configuration alone.
type Overrides struct {
	ConfigDir string
	URL       string
	Headless  bool
	MaxRetry  int
	Debug     bool
}

// LoadConfig resolves configuration and applies o on top.
func LoadConfig(o Overrides) (*config.Config, error) {
	lookup := os.LookupEnv
	if o.ConfigDir != "" {
		lookup = func(key string) (string, bool) {
			if key == common.ConfigDirEnv {
				return o.ConfigDir, true
			}
			return os.LookupEnv(key)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cfg, err := config.LoadWith(lookup, cwd)
	if err != nil {
		return nil, err
	}
	o.apply(cfg)
	return cfg, cfg.Validate()
}

func (o Overrides) apply(cfg *config.Config) {
	if o.URL != "" {
		cfg.URL = o.URL
	}
	if o.Headless {
		cfg.Headless = true
	}
	if o.MaxRetry > 0 {
		cfg.MaxRetry = o.MaxRetry
	}
	if o.Debug {
		cfg.Debug = true
	}
}

// OpenLogger returns a logger writing to the config dir's log file and,
// when console is set, to stderr as well.
func OpenLogger(cfg *config.Config, console bool) (logger.Logger, error) {
	if err := cfg.EnsureDir(); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	file, err := logger.NewFileLogger(cfg.LogPath())
	if err != nil {
		return nil, err
	}
	if !console {
		return file, nil
	}
	stderr := logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags))
	return logger.NewMultiLogger(stderr, file), nil
}

// Env is the assembled set of long-lived components.
type Env struct {
	Config *config.Config
	Log    logger.Logger
	Oracle *clock.Oracle
	Toggle *toggle.Store
	Claims *singleton.Coordinator
}

// New builds an Env.
func New(cfg *config.Config, l logger.Logger) *Env {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Env{
		Config: cfg,
		Log:    l,
		Oracle: clock.New(cfg.TZOffset, cfg.TriggerHour),
		Toggle: toggle.New(cfg.ConfigDir),
		Claims: singleton.New(cfg.ConfigDir, singleton.WithRetentionDays(cfg.ClaimRetentionDays)),
	}
}

// Launcher returns the page automation backend.
func (e *Env) Launcher() (*page.Launcher, error) {
	u, err := url.Parse(e.Config.URL)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", common.URLEnv, err)
	}
	return page.NewLauncher(e.Config.URL,
		page.WithCookies(e.cookieSource(u.Hostname())),
		page.WithArtifactDir(e.Config.ArtifactDir()),
		page.WithLogger(e.Log),
	)
}

func (e *Env) cookieSource(host string) page.CookieSource {
	return func() ([]*http.Cookie, error) {
		var (
			cookies []*http.Cookie
			src     browsercookie.Source
			err     error
		)
		if e.Config.CookieFile != "" {
			cookies, src, err = browsercookie.Load(e.Config.CookieFile, host)
		} else {
			cookies, src, err = browsercookie.Discover(host)
		}
		if errors.Is(err, browsercookie.ErrNoStore) {
			e.Log.Warning("app: no browser cookies for %s; the page will see an anonymous session", host)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		e.Log.Info("app: %d cookies from %s (%s)", len(cookies), src.Browser, src.Path)
		return cookies, nil
	}
}

// Recognizer returns the OCR backend.
func (e *Env) Recognizer() *ocr.Tesseract {
	return ocr.New(e.Config.Tesseract)
}

// Workflow returns a clock-out workflow.
func (e *Env) Workflow() (*workflow.Workflow, error) {
	l, err := e.Launcher()
	if err != nil {
		return nil, err
	}
	return workflow.New(l, e.Recognizer(), e.Toggle, e.Oracle, e.Log, workflow.Config{
		MaxRetry: e.Config.MaxRetry,
		Headless: e.Config.Headless,
		Lang:     e.Config.Lang,
	}), nil
}

// Resolver returns the off-duty time resolver.
func (e *Env) Resolver() (*offtime.Resolver, error) {
	l, err := e.Launcher()
	if err != nil {
		return nil, err
	}
	return offtime.NewResolver(l, e.Log), nil
}

// Scheduler wires the daily loop around runner.
func (e *Env) Scheduler(resolver scheduler.Resolver, runner scheduler.Runner) *scheduler.Scheduler {
	return scheduler.New(e.Oracle, e.Toggle, e.Claims, resolver, runner, e.Log, scheduler.Config{
		PollInterval: e.Config.PollInterval,
		Lead:         e.Config.Lead,
	})
}
