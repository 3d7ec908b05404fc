package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/donatale/donatale/internal/domain"
)

type Config struct {
	Server      Server      `yaml:"server"`
	Store       Store       `yaml:"store"`
	Notifier    Notifier    `yaml:"notifier"`
	Reservation Reservation `yaml:"reservation"`
}

type Server struct {
	Addr          string   `yaml:"addr"`
	Env           string   `yaml:"env"` // development, production
	SiteURL       string   `yaml:"siteURL"`
	AllowOrigins  []string `yaml:"allowOrigins"`
	PostgresDsn   string   `yaml:"postgresDsn"`
	RedisAddr     string   `yaml:"redisAddr"`
	RedisDB       int      `yaml:"redisDB"`
	MemcachedAddr string   `yaml:"memcachedAddr"`
	EnableTrace   bool     `yaml:"enableTrace"`
	TraceEndpoint string   `yaml:"traceEndpoint"`
}

type Store struct {
	BaseURL        string `yaml:"baseURL"`
	APIToken       string `yaml:"apiToken"`
	Environment    string `yaml:"environment"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

type Notifier struct {
	BaseURL        string `yaml:"baseURL"`
	APIKey         string `yaml:"apiKey"`
	SenderName     string `yaml:"senderName"`
	SenderAddress  string `yaml:"senderAddress"`
	AdminEmail     string `yaml:"adminEmail"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	Retries        int    `yaml:"retries"`
}

type Reservation struct {
	ItemTypeKey   string `yaml:"itemTypeKey"`
	EventTypeKey  string `yaml:"eventTypeKey"`
	RelationField string `yaml:"relationField"`
}

// Load reads the yaml file at path (skipped when empty), then .env, then the environment.
func Load(path string) (Config, error) {
	var config Config

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, err
		}
		defer file.Close()

		err = yaml.NewDecoder(file).Decode(&config)
		if err != nil {
			return Config{}, errors.Wrapf(err, "failed to parse %s", path)
		}
	}

	_ = godotenv.Load()

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"DATOCMS_CMA_TOKEN", &c.Store.APIToken},
		{"FORWARD_EMAIL_API_KEY", &c.Notifier.APIKey},
		{"ADMIN_EMAIL", &c.Notifier.AdminEmail},
		{"DONATALE_ADDR", &c.Server.Addr},
		{"APP_ENV", &c.Server.Env},
		{"SITE_URL", &c.Server.SiteURL},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && strings.TrimSpace(v) != "" {
			*o.dst = strings.TrimSpace(v)
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.Env == "" {
		c.Server.Env = "production"
	}
	if c.Store.BaseURL == "" {
		c.Store.BaseURL = "https://site-api.datocms.com"
	}
	if c.Store.TimeoutSeconds <= 0 {
		c.Store.TimeoutSeconds = 10
	}
	if c.Notifier.BaseURL == "" {
		c.Notifier.BaseURL = "https://api.forwardemail.net"
	}
	if c.Notifier.SenderName == "" {
		c.Notifier.SenderName = "Donatale"
	}
	if c.Notifier.TimeoutSeconds <= 0 {
		c.Notifier.TimeoutSeconds = 10
	}
	if c.Notifier.Retries < 0 {
		c.Notifier.Retries = 0
	}
	if c.Reservation.ItemTypeKey == "" {
		c.Reservation.ItemTypeKey = "donation_item"
	}
	if c.Reservation.EventTypeKey == "" {
		c.Reservation.EventTypeKey = "donation_event"
	}
	if c.Reservation.RelationField == "" {
		c.Reservation.RelationField = "donation"
	}
	if c.Server.EnableTrace && c.Server.TraceEndpoint == "" {
		c.Server.TraceEndpoint = "localhost:4318"
	}
}

// Validate reports the first missing required setting.
func (c Config) Validate() error {
	switch {
	case c.Store.APIToken == "":
		return domain.ConfigurationError{Setting: "store.apiToken (DATOCMS_CMA_TOKEN) is required"}
	case c.Notifier.APIKey == "":
		return domain.ConfigurationError{Setting: "notifier.apiKey (FORWARD_EMAIL_API_KEY) is required"}
	case c.Notifier.AdminEmail == "":
		return domain.ConfigurationError{Setting: "notifier.adminEmail (ADMIN_EMAIL) is required"}
	case c.Notifier.SenderAddress == "" && c.Server.SiteURL == "":
		return domain.ConfigurationError{Setting: "notifier.senderAddress or server.siteURL is required"}
	}
	return nil
}

func (s Store) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func (n Notifier) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// Domain is the slice of the configuration the usecases see.
func (c Config) Domain() domain.Config {
	return domain.Config{
		AdminEmail:    c.Notifier.AdminEmail,
		ItemTypeKey:   c.Reservation.ItemTypeKey,
		EventTypeKey:  c.Reservation.EventTypeKey,
		RelationField: c.Reservation.RelationField,
		SiteName:      c.Notifier.SenderName,
	}
}
