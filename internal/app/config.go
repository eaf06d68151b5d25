package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (CHECKOUT_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (CHECKOUT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Redis       RedisConfig
	Pricing     PricingConfig
	Store       StoreConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// RedisConfig controls the cart store and the remote order mirror.
type RedisConfig struct {
	Enabled   bool          `default:"true" usage:"Keep carts in Redis and mirror orders there; when false carts are process-local"`
	Addr      string        `default:"localhost:6379" usage:"Redis address or redis:// URL (also REDIS_URL)"`
	Password  string        `usage:"Redis password"`
	DB        int           `default:"0" usage:"Redis database number"`
	Prefix    string        `default:"checkout" usage:"Key prefix"`
	CartTTL   time.Duration `default:"720h" usage:"Idle time after which a cart expires" flag:"cart-ttl"`
	MirrorTTL time.Duration `default:"0" usage:"Expiry of mirrored orders, 0 keeps them" flag:"mirror-ttl"`
}

// PricingConfig holds the checkout pricing knobs.
type PricingConfig struct {
	FreeShippingThreshold int64         `default:"500000" usage:"Subtotal from which standard shipping is free, 0 disables" flag:"free-shipping-threshold"`
	CouponValidity        time.Duration `default:"720h" usage:"Validity of coupons claimed from open-ended programs" flag:"coupon-validity"`
}

// StoreConfig bounds storage calls.
type StoreConfig struct {
	Timeout       time.Duration `default:"3s" usage:"Timeout of a single Postgres call" flag:"store-timeout"`
	MirrorTimeout time.Duration `default:"5s" usage:"Timeout of a background order mirror write" flag:"mirror-timeout"`
}

// RateLimitConfig controls the per-customer sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML files,
// then applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(nil)
}

// loadConfig parses args as flags; nil means os.Args[1:].
func loadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CHECKOUT",
		Args:      args,
		Files:     []string{"config.yaml", "/etc/checkout/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set CHECKOUT_DATABASE_URL or DATABASE_URL")
	case c.Pricing.FreeShippingThreshold < 0:
		return errors.New("free shipping threshold must not be negative")
	case c.Pricing.CouponValidity <= 0:
		return errors.New("coupon validity must be positive")
	case c.Store.MirrorTimeout <= 0:
		return errors.New("mirror timeout must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided variables (Railway, Render,
// etc.) onto the CHECKOUT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if v := os.Getenv("REDIS_URL"); v != "" && os.Getenv("CHECKOUT_REDIS_ADDR") == "" {
		c.Redis.Addr = v
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
