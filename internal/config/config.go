package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	NatsURL             string
	SupabaseURL         string // storage sign URLs and public object URLs
	SupabaseSecretKey   string // service_role key, not anon key
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	CookieDomain        string
	SendinblueAPIKey    string // Brevo transactional email
	MailFrom            string // fallback sender when a template has no from_email
	PublicBaseURL       string // used to build listing links in emails
	AutoMigrate         bool
	CloserInterval      time.Duration
	StorageTimeout      time.Duration
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("AUCTION_CLOSER_INTERVAL", "60s")
	viper.SetDefault("STORAGE_TIMEOUT", "5s")
	viper.SetDefault("MAIL_FROM", "no-reply@trubid.auction")
	viper.SetDefault("PUBLIC_BASE_URL", "https://trubid.auction")

	env := viper.GetString("NODE_ENV")
	if env == "" {
		env = viper.GetString("APP_ENV")
	}
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	return &Config{
		Env:                 env,
		Port:                viper.GetString("PORT"),
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		NatsURL:             viper.GetString("NATS_URL"),
		SupabaseURL:         viper.GetString("SUPABASE_URL"),
		SupabaseSecretKey:   viper.GetString("SUPABASE_SECRET_KEY"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		CookieDomain:        viper.GetString("COOKIE_DOMAIN"),
		SendinblueAPIKey:    viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:            viper.GetString("MAIL_FROM"),
		PublicBaseURL:       strings.TrimRight(viper.GetString("PUBLIC_BASE_URL"), "/"),
		AutoMigrate:         viper.GetBool("AUTO_MIGRATE"),
		CloserInterval:      positive(viper.GetDuration("AUCTION_CLOSER_INTERVAL"), time.Minute),
		StorageTimeout:      positive(viper.GetDuration("STORAGE_TIMEOUT"), 5*time.Second),
	}, nil
}

func positive(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
