package server

import (
	"net/http"
	"time"
)

const (
	// CookieName is the name of the widget cookie
	CookieName = "chat_widget"
	// CookieMaxAge bounds how long a browser keeps its widget (12 hours)
	CookieMaxAge = 12 * time.Hour
)

// SetWidgetCookie sets an HTTP-only cookie naming the browser's widget.
func SetWidgetCookie(w http.ResponseWriter, r *http.Request, widgetID string) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    widgetID,
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	}
	http.SetCookie(w, cookie)
}

// GetWidgetCookie reads the widget ID from the cookie
func GetWidgetCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
