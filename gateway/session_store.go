package gateway

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrCorruptSession = errors.New("stored session is corrupted")

// CookieStore хранит пару токенов в cookie под фиксированным ключом, чтобы
// перезагрузка страницы не требовала повторного входа.
type CookieStore struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

type storedTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Load возвращает nil без ошибки, если cookie нет.
func (s CookieStore) Load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(s.Name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}

	var t storedTokens
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	if t.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrCorruptSession)
	}

	return &Session{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}, nil
}

func (s CookieStore) Save(w http.ResponseWriter, sess *Session) error {
	raw, err := json.Marshal(storedTokens{AccessToken: sess.AccessToken, RefreshToken: sess.RefreshToken})
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.Name,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   int(s.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s CookieStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionFromURL читает токены из access_token/refresh_token в query (magic link, OAuth redirect).
func SessionFromURL(r *http.Request) *Session {
	q := r.URL.Query()
	access := q.Get("access_token")
	if access == "" {
		return nil
	}
	return &Session{AccessToken: access, RefreshToken: q.Get("refresh_token")}
}
