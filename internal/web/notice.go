package web

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/OliverMao/kvm-manager/internal/script"
)

const (
	noticeCookie = "kvm_notice"
	stderrLimit  = 200
)

// Notice is the one-shot message shown on the page after a form post.
// Text is the tail of the script's stdout; the other fields are shown
// beneath it.
type Notice struct {
	Text     string `json:"t"`
	ExitCode int    `json:"c,omitempty"`
	Stderr   string `json:"e,omitempty"`
	TimedOut bool   `json:"o,omitempty"`
	Error    bool   `json:"x,omitempty"`
}

// Tail returns the last n characters of s, counted in code points.
// n <= 0 returns s unchanged.
func Tail(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// noticeFromRun builds the notice for one script invocation.
func noticeFromRun(res *script.Result, err error, limit int) Notice {
	if err != nil {
		return Notice{Text: err.Error(), Error: true}
	}

	n := Notice{
		Text:     Tail(res.Stdout, limit),
		ExitCode: res.ExitCode,
		TimedOut: res.TimedOut,
		Error:    res.Failed(),
	}
	if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
		n.Stderr = Tail(stderr, stderrLimit)
	}
	return n
}

func setNotice(w http.ResponseWriter, n Notice) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     noticeCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// popNotice reads and clears the notice cookie. A missing or undecodable
// cookie yields nil.
func popNotice(w http.ResponseWriter, r *http.Request) *Notice {
	c, err := r.Cookie(noticeCookie)
	if err != nil {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     noticeCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	n, err := decodeNotice(c.Value)
	if err != nil {
		return nil
	}
	return n
}

func decodeNotice(v string) (*Notice, error) {
	if v == "" {
		return nil, errors.New("empty notice")
	}
	data, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return nil, err
	}
	var n Notice
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
