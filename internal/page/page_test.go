package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"

	"github.com/autopunch/autopunch/internal/automation"
)

// attendance is a minimal stand-in for the punch page.
type attendance struct {
	mu        sync.Mutex
	loggedIn  bool
	done      bool
	punchOut  string
	code      string
	msg       string
	posts     []map[string]string
	imageHits int
}

func (a *attendance) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		if r.Method == http.MethodPost {
			_ = r.ParseForm()
			post := map[string]string{}
			for k := range r.PostForm {
				post[k] = r.PostForm.Get(k)
			}
			a.posts = append(a.posts, post)
			if c, err := r.Cookie("sid"); err != nil || c.Value != "abc" {
				a.msg = "no session"
			} else if post["ctl00$Main$captchacode"] == a.code {
				a.punchOut = "5:41:03 PM"
				a.msg = "刷卡成功"
			} else {
				a.msg = "驗證碼錯誤"
			}
		}
		user := ""
		if a.loggedIn {
			user = "王小明"
		}
		status := ""
		if a.done {
			status = "<p>本日已完成刷進退</p>"
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><body>
<span id="UserName">%s</span>
<span id="ctl00_Main_ExpOut">8:41:59 AM - 5:41:00 PM</span>
%s
<form method="post" action="./">
<input type="hidden" name="__VIEWSTATE" value="vs123">
<input type="hidden" name="__EVENTVALIDATION" value="ev456">
<img id="ctl00_Main_ImgCaptcha" src="/captcha.ashx?r=1" alt="確認碼">
<input type="text" id="ctl00_Main_captchacode" name="ctl00$Main$captchacode" value="">
<input type="checkbox" name="remember">
<input type="submit" name="ctl00$Main$btnOut" value="刷退">
<input type="submit" name="ctl00$Main$btnIn" value="刷進">
</form>
<span id="Msg">%s</span>
<table id="log">
<tr><th>刷進</th><th>刷退</th></tr>
<tr><td> 8:41:59 AM</td><td>%s</td></tr>
</table>
</body></html>`, user, status, a.msg, a.punchOut)
	})
	mux.HandleFunc("/captcha.ashx", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.imageHits++
		a.mu.Unlock()
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG fake"))
	})
	return mux
}

func openSession(t *testing.T, a *attendance, opts ...Option) (*Session, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(a.handler())
	t.Cleanup(srv.Close)
	opts = append([]Option{WithCookies(func() ([]*http.Cookie, error) {
		return []*http.Cookie{{Name: "sid", Value: "abc", Path: "/"}}, nil
	})}, opts...)
	l, err := NewLauncher(srv.URL+"/", opts...)
	if err != nil {
		t.Fatal(err)
	}
	s, err := l.Open(context.Background(), automation.OpenOptions{Headless: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s.(*Session), srv
}

func TestSession_ReadsPage(t *testing.T) {
	s, _ := openSession(t, &attendance{loggedIn: true})
	ctx := context.Background()

	if ok, err := s.IsAuthenticated(ctx); err != nil || !ok {
		t.Fatalf("IsAuthenticated = %v, %v", ok, err)
	}
	off, err := s.ReadOffDutyText(ctx)
	if err != nil || !strings.Contains(off, "5:41:00 PM") {
		t.Fatalf("ReadOffDutyText = %q, %v", off, err)
	}
	if done, _ := s.IsAlreadyDone(ctx); done {
		t.Error("IsAlreadyDone = true")
	}
	rec, ok, err := s.ReadPunchInRecord(ctx)
	if err != nil || !ok || strings.TrimSpace(rec) != "8:41:59 AM" {
		t.Fatalf("ReadPunchInRecord = %q, %v, %v", rec, ok, err)
	}
}

func TestSession_NotLoggedInAndDone(t *testing.T) {
	s, _ := openSession(t, &attendance{done: true})
	ctx := context.Background()
	if ok, _ := s.IsAuthenticated(ctx); ok {
		t.Error("IsAuthenticated = true for empty user")
	}
	if done, _ := s.IsAlreadyDone(ctx); !done {
		t.Error("IsAlreadyDone = false")
	}
}

func TestSession_SubmitAccepted(t *testing.T) {
	a := &attendance{loggedIn: true, code: "4821"}
	s, _ := openSession(t, a)
	ctx := context.Background()

	img, err := s.CaptureChallengeImage(ctx)
	if err != nil || !strings.HasPrefix(string(img), "\x89PNG") {
		t.Fatalf("CaptureChallengeImage = %q, %v", img, err)
	}
	if err := s.FillChallenge(ctx, "4821"); err != nil {
		t.Fatal(err)
	}
	res, err := s.SubmitChallenge(ctx)
	if err != nil {
		t.Fatalf("SubmitChallenge: %v", err)
	}
	if len(res.LastRecordRow) != 2 || res.LastRecordRow[1] != "5:41:03 PM" {
		t.Fatalf("last row = %q", res.LastRecordRow)
	}
	if res.Message != "刷卡成功" {
		t.Errorf("message = %q", res.Message)
	}

	post := a.posts[0]
	for k, want := range map[string]string{
		"__VIEWSTATE":            "vs123",
		"__EVENTVALIDATION":      "ev456",
		"ctl00$Main$captchacode": "4821",
		"ctl00$Main$btnOut":      "刷退",
	} {
		if post[k] != want {
			t.Errorf("posted %s = %q, want %q", k, post[k], want)
		}
	}
	if _, ok := post["ctl00$Main$btnIn"]; ok {
		t.Error("second submit button was posted")
	}
	if _, ok := post["remember"]; ok {
		t.Error("unchecked checkbox was posted")
	}
}

func TestSession_SubmitRejectedThenReload(t *testing.T) {
	a := &attendance{loggedIn: true, code: "4821"}
	s, _ := openSession(t, a)
	ctx := context.Background()

	_ = s.FillChallenge(ctx, "1111")
	res, err := s.SubmitChallenge(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Message != "驗證碼錯誤" || strings.TrimSpace(res.LastRecordRow[1]) != "" {
		t.Fatalf("got %+v", res)
	}
	if err := s.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SubmitChallenge(ctx); err == nil {
		t.Error("submit after reload without fill should fail")
	}
}

func TestSession_Closed(t *testing.T) {
	s, _ := openSession(t, &attendance{loggedIn: true})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal("second Close:", err)
	}
	if _, err := s.IsAuthenticated(context.Background()); !errors.Is(err, automation.ErrSessionClosed) {
		t.Fatalf("err = %v, want ErrSessionClosed", err)
	}
	if err := s.Reload(context.Background()); !errors.Is(err, automation.ErrSessionClosed) {
		t.Fatalf("err = %v, want ErrSessionClosed", err)
	}
}

func TestSession_Artifacts(t *testing.T) {
	dir := t.TempDir()
	srv := httptest.NewServer((&attendance{loggedIn: true}).handler())
	defer srv.Close()
	l, _ := NewLauncher(srv.URL+"/", WithArtifactDir(dir))
	sess, err := l.Open(context.Background(), automation.OpenOptions{Headless: false})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	if _, err := sess.CaptureChallengeImage(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "captcha.png")); err != nil {
		t.Errorf("captcha artifact missing: %v", err)
	}
	path, err := sess.(automation.Snapshotter).Snapshot(context.Background(), "dry-run-preview")
	if err != nil || path != filepath.Join(dir, "dry-run-preview.html") {
		t.Fatalf("Snapshot = %q, %v", path, err)
	}
}

func TestOpen_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	l, _ := NewLauncher(srv.URL)
	_, err := l.Open(context.Background(), automation.OpenOptions{})
	if err == nil {
		t.Fatal("expected error for 503")
	}
	if errors.Is(err, automation.ErrSessionClosed) {
		t.Errorf("HTTP status error classified as closed session: %v", err)
	}
}

// dropping wraps h and closes connections without a response once drop is set.
func dropping(h http.Handler, drop *atomic.Bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !drop.Load() {
			h.ServeHTTP(w, r)
			return
		}
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	})
}

func TestSession_DroppedConnectionClosesSession(t *testing.T) {
	var drop atomic.Bool
	srv := httptest.NewServer(dropping((&attendance{loggedIn: true}).handler(), &drop))
	defer srv.Close()
	l, err := NewLauncher(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	sess, err := l.Open(context.Background(), automation.OpenOptions{Headless: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sess.Close()

	drop.Store(true)
	if err := sess.Reload(context.Background()); !errors.Is(err, automation.ErrSessionClosed) {
		t.Errorf("Reload() error = %v, want ErrSessionClosed", err)
	}
	if _, err := l.Open(context.Background(), automation.OpenOptions{Headless: true}); !errors.Is(err, automation.ErrSessionClosed) {
		t.Errorf("Open() error = %v, want ErrSessionClosed", err)
	}
}

func TestConnectionLost(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		closed bool
	}{
		{"eof", fmt.Errorf("get: %w", io.EOF), true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, true},
		{"closed conn", fmt.Errorf("read: %w", net.ErrClosed), true},
		{"timeout", context.DeadlineExceeded, false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := connectionLost(tt.err)
			if errors.Is(got, automation.ErrSessionClosed) != tt.closed {
				t.Errorf("connectionLost(%v) = %v, closed want %v", tt.err, got, tt.closed)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("cause lost: %v", got)
			}
		})
	}
}

func TestNewLauncher_RejectsScheme(t *testing.T) {
	if _, err := NewLauncher("file:///etc/passwd"); err == nil {
		t.Fatal("expected error")
	}
}
