package handler

import (
	"go-task-api/config"
	"go-task-api/model"
	"net/http"
	"strings"
	"time"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookieOptions carries the flags shared by both auth cookies.
type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

func NewCookieOptions(cfg *config.Config) CookieOptions {
	sameSite := http.SameSiteStrictMode
	switch strings.ToLower(cfg.Cookie.SameSite) {
	case "lax":
		sameSite = http.SameSiteLaxMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}
	return CookieOptions{
		Secure:   cfg.CookieSecure(),
		SameSite: sameSite,
		Domain:   cfg.Cookie.Domain,
	}
}

func (o CookieOptions) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   o.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	}
}

func (o CookieOptions) setTokens(w http.ResponseWriter, pair *model.TokenPair, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, o.cookie(AccessTokenCookie, pair.AccessToken, int(accessTTL.Seconds())))
	http.SetCookie(w, o.cookie(RefreshTokenCookie, pair.RefreshToken, int(refreshTTL.Seconds())))
}

// clearTokens expires both cookies with the same flags they were set with.
func (o CookieOptions) clearTokens(w http.ResponseWriter) {
	http.SetCookie(w, o.cookie(AccessTokenCookie, "", -1))
	http.SetCookie(w, o.cookie(RefreshTokenCookie, "", -1))
}
