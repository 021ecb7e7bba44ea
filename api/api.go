package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/e-commerce-storefront/api/middleware"
	"github.com/irsalhamdi/e-commerce-storefront/api/web"
	"github.com/irsalhamdi/e-commerce-storefront/core/auth"
	"github.com/irsalhamdi/e-commerce-storefront/core/cart"
	"github.com/irsalhamdi/e-commerce-storefront/core/catalog"
	"github.com/irsalhamdi/e-commerce-storefront/core/order"
	"github.com/irsalhamdi/e-commerce-storefront/core/payment"
	"github.com/irsalhamdi/e-commerce-storefront/rate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Catalog          *catalog.Catalog
	Carts            *cart.Service
	Payments         *payment.Service
	Accounts         *payment.Accounts
	Billing          *payment.Billing
	WebhookSecret    string
	Providers        map[string]auth.Provider
	LoginRedirectURL string
	Limiter          *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	var limit web.Middleware
	if cfg.Limiter != nil {
		limit = middleware.RateLimit(cfg.Limiter)
	}

	authen := auth.Authenticate(cfg.Session)
	owner := auth.OwnStore(auth.FetchStoreFrom(cfg.DB))

	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.Session, cfg.Providers, cfg.LoginRedirectURL))
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session), authen)

	a.Handle(http.MethodGet, "/catalog/categories", catalog.HandleListCategories(cfg.Catalog))
	a.Handle(http.MethodGet, "/catalog/featured", catalog.HandleListFeatured(cfg.Catalog))
	a.Handle(http.MethodGet, "/catalog/products", catalog.HandleListProducts(cfg.Catalog))
	a.Handle(http.MethodGet, "/catalog/search", catalog.HandleSearch(cfg.Catalog), limit)
	a.Handle(http.MethodGet, "/banners", catalog.HandleListBanners(cfg.Catalog))

	a.Handle(http.MethodGet, "/cart/stores", cart.HandleListStores(cfg.Carts), limit)
	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.Carts), limit)
	a.Handle(http.MethodDelete, "/cart", cart.HandleDelete(cfg.Carts), limit)
	a.Handle(http.MethodPut, "/cart/items", cart.HandleCreateItem(cfg.Carts), limit)
	a.Handle(http.MethodDelete, "/cart/items", cart.HandleDeleteItems(cfg.Carts), limit)
	a.Handle(http.MethodPatch, "/cart/items/{product_id}", cart.HandleUpdateItem(cfg.Carts), limit)
	a.Handle(http.MethodDelete, "/cart/items/{product_id}", cart.HandleDeleteItem(cfg.Carts), limit)

	a.Handle(http.MethodPost, "/stores/{store_id}/payment-intents", payment.HandleCreateIntent(cfg.Payments), limit)
	a.Handle(http.MethodPost, "/stores/{store_id}/payment-intents/{id}/verify", payment.HandleVerifyIntent(cfg.Payments), limit)
	a.Handle(http.MethodGet, "/stores/{store_id}/payment-intents", payment.HandleListIntents(cfg.Payments), authen, owner)
	a.Handle(http.MethodPost, "/stores/{store_id}/stripe/connect", payment.HandleConnect(cfg.Accounts), authen, owner)
	a.Handle(http.MethodGet, "/stores/{store_id}/stripe/account", payment.HandleShowAccount(cfg.Accounts), authen, owner)
	a.Handle(http.MethodGet, "/stores/{store_id}/orders", order.HandleList(cfg.DB), authen, owner)
	a.Handle(http.MethodGet, "/stores/{store_id}/analytics", order.HandleAnalytics(cfg.DB), authen, owner)

	a.Handle(http.MethodPost, "/billing/plan", payment.HandleManagePlan(cfg.Billing), authen)
	a.Handle(http.MethodPost, "/webhooks/stripe", payment.HandleWebhook(cfg.Payments, cfg.WebhookSecret))

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
