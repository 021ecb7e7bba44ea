package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/e-commerce-storefront/api"
	"github.com/irsalhamdi/e-commerce-storefront/cache"
	"github.com/irsalhamdi/e-commerce-storefront/config"
	"github.com/irsalhamdi/e-commerce-storefront/core/auth"
	"github.com/irsalhamdi/e-commerce-storefront/core/cart"
	"github.com/irsalhamdi/e-commerce-storefront/core/catalog"
	"github.com/irsalhamdi/e-commerce-storefront/core/money"
	"github.com/irsalhamdi/e-commerce-storefront/core/order"
	"github.com/irsalhamdi/e-commerce-storefront/core/payment"
	"github.com/irsalhamdi/e-commerce-storefront/database"
	"github.com/irsalhamdi/e-commerce-storefront/rate"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	const prefix = "STOREFRONT"
	var cfg config.Config
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	logger.Infof("startup config:\n%s", out)

	feeRate, err := money.ParseRate(cfg.Checkout.FeeRate)
	if err != nil {
		return fmt.Errorf("parsing checkout fee rate: %w", err)
	}

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.StatusCheck(ctx, db); err != nil {
		return fmt.Errorf("database is not ready: %w", err)
	}

	if cfg.DB.Migrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to migrate the database: %w", err)
		}
	}

	rdb := cache.Open(cfg.Redis)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis is unreachable, catalog listings will not be cached")
	}
	cch := cache.New(rdb, logger, cfg.Redis.TTL)

	cat := catalog.New(db, cch)
	carts := cart.NewService(cart.NewPGStore(db), cat, cch, logger)

	strp := payment.NewStripe(payment.NewStripeClient(cfg.Stripe))
	accounts := payment.NewAccounts(db, strp, logger, cfg.Checkout.BaseURL)
	payments := payment.NewService(strp, carts, accounts, order.NewRecorder(db), payment.Config{
		FeeRate:  feeRate,
		Currency: cfg.Checkout.Currency,
	}, logger)
	billing := payment.NewBilling(strp, logger, cfg.Checkout.BaseURL)

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Session.Lifetime
	sessionManager.Cookie.Secure = cfg.Session.CookieSecure
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	oauthCtx, oauthCancel := context.WithTimeout(context.Background(), cfg.Oauth.DiscoveryTimeout)
	defer oauthCancel()
	google := cfg.Oauth.Google
	oauthProvs, err := auth.MakeProviders(oauthCtx, []auth.ProviderConfig{
		{Name: "google", Client: google.Client, Secret: google.Secret, URL: google.URL, RedirectURL: google.RedirectURL},
	})
	if err != nil {
		return fmt.Errorf("failed to discover oauth providers: %w", err)
	}

	limiter := rate.NewLimiter(cfg.Rate.Burst, time.Duration(cfg.Rate.ExpiryMinutes)*time.Minute, cfg.Rate.RPS)
	defer limiter.Stop()

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:       cfg.Cors.Origin,
		Log:              logger,
		DB:               db,
		Session:          sessionManager,
		Catalog:          cat,
		Carts:            carts,
		Payments:         payments,
		Accounts:         accounts,
		Billing:          billing,
		WebhookSecret:    cfg.Stripe.WebhookSecret,
		Providers:        oauthProvs,
		LoginRedirectURL: cfg.Oauth.LoginRedirectURL,
		Limiter:          limiter,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}
