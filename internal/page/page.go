// Package page implements automation sessions over plain HTTP. The
// attendance page is a server-rendered form, so fetching it with the
// browser's cookies, reading the DOM and posting the form back behaves
// like a user pressing Enter in the challenge box.
package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"github.com/autopunch/autopunch/internal/automation"
	"github.com/autopunch/autopunch/internal/browsercookie"
	"github.com/autopunch/autopunch/pkg/logger"
)

const (
	NavigationTimeout = 30 * time.Second
	ImageTimeout      = 5 * time.Second

	// AlreadyDoneMarker appears once both punches of the day are recorded.
	AlreadyDoneMarker = "本日已完成刷進退"

	maxPageSize  = 8 << 20
	maxImageSize = 1 << 20
)

// CookieSource yields the cookies used to authenticate a new session.
type CookieSource func() ([]*http.Cookie, error)

// Launcher opens HTTP sessions against one page.
type Launcher struct {
	target      *url.URL
	cookies     CookieSource
	artifactDir string
	log         logger.Logger
	transport   http.RoundTripper
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithCookies sets the cookie source.
func WithCookies(src CookieSource) Option {
	return func(l *Launcher) { l.cookies = src }
}

// WithArtifactDir sets where snapshots and debug captures are written.
func WithArtifactDir(dir string) Option {
	return func(l *Launcher) { l.artifactDir = dir }
}

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Launcher) { l.log = lg }
}

// WithTransport overrides the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(l *Launcher) { l.transport = rt }
}

// NewLauncher returns a Launcher for target.
func NewLauncher(target string, opts ...Option) (*Launcher, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported page url %q", target)
	}
	l := &Launcher{target: u, log: logger.NewNopLogger()}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Open creates a session and loads the page.
func (l *Launcher) Open(ctx context.Context, opts automation.OpenOptions) (automation.Session, error) {
	var cookies []*http.Cookie
	if l.cookies != nil {
		c, err := l.cookies()
		if err != nil {
			l.log.Warning("page: load cookies: %v", err)
		} else {
			cookies = c
			l.log.Info("page: using cookies %v", browsercookie.Names(c))
		}
	}
	jar, err := browsercookie.Jar(l.target, cookies)
	if err != nil {
		return nil, err
	}
	s := &Session{
		client: &http.Client{
			Jar:       jar,
			Timeout:   NavigationTimeout,
			Transport: l.transport,
		},
		target:      l.target,
		headless:    opts.Headless,
		artifactDir: l.artifactDir,
		log:         l.log,
	}
	if err := s.navigate(ctx, http.MethodGet, l.target, nil); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Session is one loaded copy of the page plus its cookie jar.
type Session struct {
	mu          sync.Mutex
	client      *http.Client
	target      *url.URL
	current     *url.URL
	raw         []byte
	doc         *html.Node
	fill        map[string]string
	closed      bool
	headless    bool
	artifactDir string
	log         logger.Logger
}

var _ automation.Session = (*Session)(nil)
var _ automation.Snapshotter = (*Session)(nil)

func (s *Session) navigate(ctx context.Context, method string, u *url.URL, form url.Values) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u.Redacted(), connectionLost(err))
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: %s", method, u.Redacted(), resp.Status)
	}
	r, err := charset.NewReader(io.LimitReader(resp.Body, maxPageSize), resp.Header.Get("Content-Type"))
	if err != nil {
		return fmt.Errorf("decode page: %w", err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read page: %w", connectionLost(err))
	}
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}
	s.raw = raw
	s.doc = doc
	s.current = resp.Request.URL
	s.fill = nil
	return nil
}

// connectionLost marks errors of a dropped connection as ErrSessionClosed.
func connectionLost(err error) error {
	for _, target := range []error{io.EOF, io.ErrUnexpectedEOF, net.ErrClosed, syscall.ECONNRESET, syscall.ECONNABORTED} {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: %w", automation.ErrSessionClosed, err)
		}
	}
	return err
}

func (s *Session) lock() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return automation.ErrSessionClosed
	}
	return nil
}

func (s *Session) IsAuthenticated(context.Context) (bool, error) {
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.mu.Unlock()
	return strings.TrimSpace(text(find(s.doc, byID("UserName")))) != "", nil
}

func (s *Session) ReadOffDutyText(context.Context) (string, error) {
	if err := s.lock(); err != nil {
		return "", err
	}
	defer s.mu.Unlock()
	n := find(s.doc, byID("expOut"))
	if n == nil || strings.TrimSpace(text(n)) == "" {
		n = find(s.doc, func(n *html.Node) bool { return attrContains(n, "id", "xpOut") })
	}
	if n == nil {
		return "", fmt.Errorf("off-duty time element not found")
	}
	return text(n), nil
}

func (s *Session) IsAlreadyDone(context.Context) (bool, error) {
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.mu.Unlock()
	return bytes.Contains(s.raw, []byte(AlreadyDoneMarker)), nil
}

func (s *Session) ReadPunchInRecord(context.Context) (string, bool, error) {
	if err := s.lock(); err != nil {
		return "", false, err
	}
	defer s.mu.Unlock()
	// The first row may be a header of <th>s; the last row holds today's data.
	trs := rows(s.doc, "log")
	if len(trs) == 0 {
		return "", false, nil
	}
	c := cells(trs[len(trs)-1])
	if len(c) == 0 {
		return "", false, nil
	}
	return c[0], true, nil
}

func challengeImage(n *html.Node) bool {
	return n.DataAtom == atom.Img && (attrContains(n, "id", "aptcha") || attrContains(n, "alt", "確認"))
}

func challengeInput(n *html.Node) bool {
	return n.DataAtom == atom.Input && (attrContains(n, "id", "captchacode") ||
		attrContains(n, "id", "aptcha") ||
		attrContains(n, "name", "captcha") ||
		attrContains(n, "placeholder", "確認"))
}

func (s *Session) CaptureChallengeImage(ctx context.Context) ([]byte, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	img := find(s.doc, challengeImage)
	if img == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("challenge image not found")
	}
	src, err := s.current.Parse(attr(img, "src"))
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("challenge image src: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, ImageTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch challenge image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch challenge image: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("read challenge image: %w", err)
	}
	if !s.headless {
		if path, err := s.writeArtifact("captcha.png", data); err == nil && path != "" {
			s.log.Info("page: challenge image saved to %s", path)
		}
	}
	return data, nil
}

func (s *Session) FillChallenge(_ context.Context, code string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	in := find(s.doc, challengeInput)
	if in == nil {
		return fmt.Errorf("challenge input not found")
	}
	name := attr(in, "name")
	if name == "" {
		return fmt.Errorf("challenge input has no name")
	}
	s.fill = map[string]string{name: code}
	return nil
}

func (s *Session) SubmitChallenge(ctx context.Context) (automation.SubmitResult, error) {
	if err := s.lock(); err != nil {
		return automation.SubmitResult{}, err
	}
	in := find(s.doc, challengeInput)
	if in == nil || s.fill == nil {
		s.mu.Unlock()
		return automation.SubmitResult{}, fmt.Errorf("challenge not filled")
	}
	form := ancestor(in, atom.Form)
	if form == nil {
		form = find(s.doc, isAtom(atom.Form))
	}
	if form == nil {
		s.mu.Unlock()
		return automation.SubmitResult{}, fmt.Errorf("challenge form not found")
	}
	vals := formValues(form, s.fill)
	action, err := s.current.Parse(attr(form, "action"))
	if err != nil {
		s.mu.Unlock()
		return automation.SubmitResult{}, fmt.Errorf("form action: %w", err)
	}
	method := strings.ToUpper(attr(form, "method"))
	if method == "" {
		method = http.MethodGet
	}

	if method == http.MethodGet {
		action.RawQuery = vals.Encode()
		err = s.navigate(ctx, method, action, nil)
	} else {
		err = s.navigate(ctx, http.MethodPost, action, vals)
	}
	if err != nil {
		s.mu.Unlock()
		return automation.SubmitResult{}, fmt.Errorf("submit: %w", err)
	}
	res := automation.SubmitResult{Message: strings.TrimSpace(text(find(s.doc, byID("Msg"))))}
	if trs := rows(s.doc, "log"); len(trs) > 0 {
		res.LastRecordRow = cells(trs[len(trs)-1])
	}
	s.mu.Unlock()
	return res, nil
}

func (s *Session) Reload(ctx context.Context) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.navigate(ctx, http.MethodGet, s.target, nil)
}

// Snapshot writes the current page HTML to the artifact directory.
func (s *Session) Snapshot(_ context.Context, label string) (string, error) {
	if err := s.lock(); err != nil {
		return "", err
	}
	raw := s.raw
	s.mu.Unlock()
	return s.writeArtifact(label+".html", raw)
}

func (s *Session) writeArtifact(name string, data []byte) (string, error) {
	if s.artifactDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(s.artifactDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(s.artifactDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.client.CloseIdleConnections()
	return nil
}
