package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/showcase/internal/locale"
)

const (
	localeContextKey     = "__request_locale"
	languageCookieName   = "sc_lang"
	languageCookieMaxAge = 365 * 24 * 60 * 60
)

// requestLanguage 依次使用 ?lang、语言 Cookie 与 Accept-Language。
// 显式指定的语言会写入 Cookie。
func requestLanguage(c *gin.Context) string {
	if cached, exists := c.Get(localeContextKey); exists {
		if language, ok := cached.(string); ok {
			return language
		}
	}

	language := ""
	if override := locale.NormalizeLanguage(c.Query("lang")); override != "" {
		language = override
		persistLanguage(c, override)
	} else if cookie, err := c.Cookie(languageCookieName); err == nil {
		language = locale.NormalizeLanguage(cookie)
	}
	if language == "" {
		language = locale.Resolve("", c.GetHeader("Accept-Language"))
	}

	c.Set(localeContextKey, language)
	return language
}

func persistLanguage(c *gin.Context, language string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     languageCookieName,
		Value:    language,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Request.TLS != nil,
		MaxAge:   languageCookieMaxAge,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		SameSite: http.SameSiteLaxMode,
	})
}
