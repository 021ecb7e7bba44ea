package cart

import (
	"net/http"
	"time"

	"github.com/irsalhamdi/e-commerce-storefront/api/web"
)

const (
	CookieName = "cartId"
	CookieTTL  = 30 * 24 * time.Hour
)

func TokenFromRequest(r *http.Request) string {
	return web.Cookie(r, CookieName)
}

func SetToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(CookieTTL.Seconds()),
		Expires:  time.Now().Add(CookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func ExpireToken(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
