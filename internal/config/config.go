package config

import (
	"errors"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"

	pkgconfig "github.com/bianchini88/rdmkit/pkg/config"
)

const (
	// DefaultBaseURL is the FAIRsharing production API.
	DefaultBaseURL = "https://api.fairsharing.org/"
	// DevBaseURL is the FAIRsharing development API.
	DevBaseURL = "https://dev-api.fairsharing.org/"
	// DefaultOutputPath is where the record page is written, relative to the working directory.
	DefaultOutputPath = "../data/fairsharing_records.json"
	// DefaultPageSize requests a single record; the full set needs roughly 10000.
	DefaultPageSize = 1
)

// Config holds the runtime configuration for one download run.
// Values come from the environment (and .env); CLI flags override them.
type Config struct {
	ServiceName string // e.g. "fairsharing-records"
	Env         string // e.g. "dev", "uat", "prod"
	LogLevel    string // "debug", "info", etc.

	BaseURL     string
	Username    string
	Password    string
	AuthEnabled bool // --reg
	PageSize    int
	OutputPath  string
	HTTPTimeout time.Duration // zero means no client timeout

	AWSRegion         string // for AWS SDK client
	CredentialsSecret string // Secrets Manager ID holding {"username","password"}
	MetricsTextfile   string // Prometheus textfile destination; empty disables
}

// Load loads configuration from environment variables and .env file if present.
func Load() *Config {
	// load .env silently (no error if missing)
	_ = godotenv.Load()

	return &Config{
		ServiceName:       pkgconfig.GetEnv("SERVICE_NAME", "fairsharing-records"),
		Env:               pkgconfig.GetEnv("ENV", "dev"),
		LogLevel:          pkgconfig.GetEnv("LOG_LEVEL", "info"),
		BaseURL:           pkgconfig.GetEnv("FAIRSHARING_BASE_URL", DefaultBaseURL),
		Username:          pkgconfig.GetEnv("FAIRSHARING_USERNAME", ""),
		Password:          pkgconfig.GetEnv("FAIRSHARING_PASSWORD", ""),
		AuthEnabled:       pkgconfig.GetEnvBool("FAIRSHARING_REG", false),
		PageSize:          pkgconfig.GetEnvInt("FAIRSHARING_PAGE_SIZE", DefaultPageSize),
		OutputPath:        pkgconfig.GetEnv("FAIRSHARING_OUTPUT", DefaultOutputPath),
		HTTPTimeout:       pkgconfig.GetEnvDuration("HTTP_TIMEOUT", 0),
		AWSRegion:         pkgconfig.GetEnv("AWS_REGION", "us-east-2"),
		CredentialsSecret: pkgconfig.GetEnv("FAIRSHARING_CREDENTIALS_SECRET", ""),
		MetricsTextfile:   pkgconfig.GetEnv("METRICS_TEXTFILE", ""),
	}
}

// Validate checks the configuration is usable for a run. Credentials are only
// required when the authenticated path is enabled.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.PageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.OutputPath, validation.Required),
		validation.Field(&c.HTTPTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Username, validation.When(c.AuthEnabled, validation.Required)),
		validation.Field(&c.Password, validation.When(c.AuthEnabled, validation.Required)),
	)
}

func httpURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}
