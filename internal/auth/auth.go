package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	cookieName    = "session"
	defaultMaxAge = 14 * 24 * time.Hour
)

// Auth выдаёт и проверяет подписанную сессионную куку
// вида session=userID:expires:signature.
type Auth struct {
	SecretKey string
	MaxAge    time.Duration
	Secure    bool
	now       func() time.Time
}

func New(secret string) *Auth {
	return &Auth{SecretKey: secret, MaxAge: defaultMaxAge, now: time.Now}
}

// CookieName возвращает имя сессионной куки.
func (a *Auth) CookieName() string {
	return cookieName
}

// Создать подпись
func (a *Auth) sign(userID string, expires int64) string {
	mac := hmac.New(sha256.New, []byte(a.SecretKey))
	mac.Write([]byte(userID))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Login выставляет сессионную куку для пользователя.
func (a *Auth) Login(w http.ResponseWriter, userID string) {
	expires := a.now().Add(a.MaxAge)
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    a.SignCookieValue(userID, expires),
		Path:     "/",
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
		MaxAge:   int(a.MaxAge.Seconds()),
	})
}

// Logout удаляет сессионную куку.
func (a *Auth) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// UserID проверяет куку запроса и возвращает идентификатор пользователя.
func (a *Auth) UserID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	parts := strings.SplitN(cookie.Value, ":", 3)
	if len(parts) != 3 || parts[0] == "" {
		return "", false
	}
	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", false
	}
	if !hmac.Equal([]byte(a.sign(parts[0], expires)), []byte(parts[2])) {
		return "", false
	}
	if a.now().Unix() >= expires {
		return "", false
	}

	return parts[0], true
}

// SignCookieValue формирует значение куки. Используется и в тестах.
func (a *Auth) SignCookieValue(userID string, expires time.Time) string {
	exp := expires.Unix()
	return fmt.Sprintf("%s:%d:%s", userID, exp, a.sign(userID, exp))
}
