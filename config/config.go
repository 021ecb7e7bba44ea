package config

import (
	"time"

	"github.com/ardanlabs/conf/v3"
)

type Config struct {
	conf.Version
	Web      Web
	Cors     Cors
	DB       DB
	Redis    Redis
	Stripe   Stripe
	Checkout Checkout
	Session  Session
	Oauth    Oauth
	Rate     Rate
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:storefront"`
	MaxIdleConns int    `conf:"default:10"`
	MaxOpenConns int    `conf:"default:50"`
	DisableTLS   bool   `conf:"default:true"`
	Migrate      bool   `conf:"default:true"`
}

type Redis struct {
	Address  string        `conf:"default:localhost:6379"`
	Password string        `conf:"mask"`
	DB       int           `conf:"default:0"`
	TTL      time.Duration `conf:"default:1h"`
}

type Stripe struct {
	APISecret     string        `conf:"mask"`
	WebhookSecret string        `conf:"mask"`
	URL           string        `conf:"help:override of the stripe API base url"`
	Timeout       time.Duration `conf:"default:10s"`
}

type Checkout struct {
	FeeRate  string `conf:"default:0.1"`
	Currency string `conf:"default:usd"`
	BaseURL  string `conf:"default:http://localhost:3000"`
}

type Session struct {
	Lifetime     time.Duration `conf:"default:24h"`
	CookieSecure bool          `conf:"default:false"`
}

type Oauth struct {
	Google           Provider
	DiscoveryTimeout time.Duration `conf:"default:10s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000/dashboard/stores"`
}

type Provider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:8000/auth/oauth-callback/google"`
}

type Rate struct {
	Burst         int     `conf:"default:20"`
	ExpiryMinutes int     `conf:"default:3"`
	RPS           float64 `conf:"default:10"`
}
