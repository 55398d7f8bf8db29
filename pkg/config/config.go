package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App       AppConfig
	Pricing   PricingConfig
	Stripe    StripeConfig
	PayPal    PayPalConfig
	Square    SquareConfig
	OpenAI    OpenAIConfig
	Resend    ResendConfig
	Timeouts  TimeoutConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if _, err := cfg.Pricing.Price(); err != nil {
		return nil, err
	}
	if !cfg.Stripe.Enabled() && !cfg.PayPal.Enabled() && !cfg.Square.Enabled() {
		return nil, fmt.Errorf("at least one payment provider must be configured")
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PORTAL_APP_ENV" default:"dev"`
	Port         string `envconfig:"PORTAL_APP_PORT" default:"3000"`
	BaseURL      string `envconfig:"PORTAL_BASE_URL"`
	LogLevel     string `envconfig:"PORTAL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PORTAL_LOG_WARN_STACK" default:"false"`

	// TrustedProxyHops is the number of proxies that append to X-Forwarded-For.
	TrustedProxyHops int `envconfig:"PORTAL_TRUSTED_PROXY_HOPS" default:"1"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// PublicBaseURL returns the externally visible base URL without a trailing slash.
func (a AppConfig) PublicBaseURL() string {
	base := strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	if base == "" {
		return "http://localhost:" + a.Port
	}
	return base
}

// PricingConfig is the fixed price charged for every reading.
type PricingConfig struct {
	Amount      string `envconfig:"PORTAL_PRICE_AMOUNT" default:"15.00"`
	Currency    string `envconfig:"PORTAL_PRICE_CURRENCY" default:"USD"`
	ProductName string `envconfig:"PORTAL_PRODUCT_NAME" default:"Lectura Akáshica"`
}

// Price parses the configured amount; it must be positive and carry no more
// decimals than the currency allows.
func (p PricingConfig) Price() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(p.Amount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing price amount %q: %w", p.Amount, err)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("price amount must be positive, got %s", amount)
	}
	code := p.CurrencyCode()
	exp := CurrencyExponent(code)
	if !amount.Equal(amount.Round(exp)) {
		return decimal.Zero, fmt.Errorf("price amount %s has more than %d decimals for %s", amount, exp, code)
	}
	return amount, nil
}

// CurrencyCode returns the ISO currency in upper case.
func (p PricingConfig) CurrencyCode() string {
	code := strings.ToUpper(strings.TrimSpace(p.Currency))
	if code == "" {
		return "USD"
	}
	return code
}

var currencyExponents = map[string]int32{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "ISK": 0, "JPY": 0, "KMF": 0, "KRW": 0,
	"PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0, "XOF": 0, "XPF": 0,
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
}

// CurrencyExponent is the number of minor-unit decimals for an ISO 4217 code.
func CurrencyExponent(code string) int32 {
	if exp, ok := currencyExponents[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return exp
	}
	return 2
}

type StripeConfig struct {
	SecretKey     string `envconfig:"PORTAL_STRIPE_SECRET_KEY"`
	WebhookSecret string `envconfig:"PORTAL_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"PORTAL_STRIPE_ENV" default:"test"`
	PriceID       string `envconfig:"PORTAL_STRIPE_PRICE_ID"`
}

func (s StripeConfig) Enabled() bool {
	return strings.TrimSpace(s.SecretKey) != ""
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type PayPalConfig struct {
	ClientID     string `envconfig:"PORTAL_PAYPAL_CLIENT_ID"`
	ClientSecret string `envconfig:"PORTAL_PAYPAL_CLIENT_SECRET"`
	Mode         string `envconfig:"PORTAL_PAYPAL_MODE" default:"sandbox"`
}

func (p PayPalConfig) Enabled() bool {
	return strings.TrimSpace(p.ClientID) != "" && strings.TrimSpace(p.ClientSecret) != ""
}

type SquareConfig struct {
	AccessToken         string `envconfig:"PORTAL_SQUARE_ACCESS_TOKEN"`
	Env                 string `envconfig:"PORTAL_SQUARE_ENV" default:"sandbox"`
	LocationID          string `envconfig:"PORTAL_SQUARE_LOCATION_ID"`
	WebhookSignatureKey string `envconfig:"PORTAL_SQUARE_WEBHOOK_SIGNATURE_KEY"`
	// WebhookURL must match the notification URL registered with Square.
	WebhookURL string `envconfig:"PORTAL_SQUARE_WEBHOOK_URL"`
}

func (s SquareConfig) Enabled() bool {
	return strings.TrimSpace(s.AccessToken) != "" && strings.TrimSpace(s.LocationID) != ""
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type OpenAIConfig struct {
	APIKey      string  `envconfig:"PORTAL_OPENAI_API_KEY" required:"true"`
	Model       string  `envconfig:"PORTAL_OPENAI_MODEL" default:"gpt-4.1-mini"`
	Temperature float64 `envconfig:"PORTAL_OPENAI_TEMPERATURE" default:"0.9"`
	MaxTokens   int64   `envconfig:"PORTAL_OPENAI_MAX_TOKENS" default:"2000"`
}

type ResendConfig struct {
	APIKey string `envconfig:"PORTAL_RESEND_API_KEY" required:"true"`
	From   string `envconfig:"PORTAL_EMAIL_FROM" required:"true"`
}

// TimeoutConfig bounds each external round-trip.
type TimeoutConfig struct {
	Payment    time.Duration `envconfig:"PORTAL_PAYMENT_TIMEOUT" default:"20s"`
	Generation time.Duration `envconfig:"PORTAL_GENERATION_TIMEOUT" default:"90s"`
	Delivery   time.Duration `envconfig:"PORTAL_DELIVERY_TIMEOUT" default:"20s"`
	Shutdown   time.Duration `envconfig:"PORTAL_SHUTDOWN_TIMEOUT" default:"30s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PORTAL_REDIS_URL"`
	PoolSize     int           `envconfig:"PORTAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PORTAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PORTAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PORTAL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PORTAL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

type RateLimitConfig struct {
	Window          time.Duration `envconfig:"PORTAL_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit         int           `envconfig:"PORTAL_RATE_LIMIT_IP_LIMIT" default:"10"`
	EmailLimit      int           `envconfig:"PORTAL_RATE_LIMIT_EMAIL_LIMIT" default:"5"`
	WebhookDedupTTL time.Duration `envconfig:"PORTAL_WEBHOOK_DEDUP_TTL" default:"72h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"PORTAL_CORS_ALLOWED_ORIGINS" default:"*"`
}
