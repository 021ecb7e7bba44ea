package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/e-commerce-storefront/api/web"
)

const (
	userIDKey = "user_id"
	emailKey  = "email"
	roleKey   = "role"
	stateKey  = "oauth_state"
)

// LoadAndSave loads the session named by the request cookie and commits it
// before the first byte of the response is written.
func LoadAndSave(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var token string
			if c, err := r.Cookie(sm.Cookie.Name); err == nil {
				token = c.Value
			}

			ctx, err := sm.Load(ctx, token)
			if err != nil {
				return fmt.Errorf("loading session: %w", err)
			}

			sw := &sessionWriter{ResponseWriter: w, ctx: ctx, sm: sm}
			herr := handler(ctx, sw, r.WithContext(ctx))
			sw.commit()

			if herr != nil {
				return herr
			}
			if sw.err != nil {
				return fmt.Errorf("committing session: %w", sw.err)
			}
			return nil
		}
		return h
	}
	return m
}

type sessionWriter struct {
	http.ResponseWriter
	ctx  context.Context
	sm   *scs.SessionManager
	done bool
	err  error
}

func (sw *sessionWriter) commit() {
	if sw.done {
		return
	}
	sw.done = true

	switch sw.sm.Status(sw.ctx) {
	case scs.Modified:
		token, expiry, err := sw.sm.Commit(sw.ctx)
		if err != nil {
			sw.err = err
			return
		}
		sw.sm.WriteSessionCookie(sw.ctx, sw.ResponseWriter, token, expiry)
	case scs.Destroyed:
		sw.sm.WriteSessionCookie(sw.ctx, sw.ResponseWriter, "", time.Time{})
	}
}

func (sw *sessionWriter) WriteHeader(code int) {
	sw.commit()
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *sessionWriter) Write(b []byte) (int, error) {
	sw.commit()
	return sw.ResponseWriter.Write(b)
}
