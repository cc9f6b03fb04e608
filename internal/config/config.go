/**
 * @description
 * This package handles the configuration management for the service. It uses
 * the Viper library to read configuration from environment variables (and an
 * optional .env file), providing a centralized way to manage application
 * settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the kyc-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                     string `mapstructure:"SERVER_PORT"`
	DatabaseURL                    string `mapstructure:"DATABASE_URL"`
	RabbitMQURL                    string `mapstructure:"RABBITMQ_URL"`
	EnableRabbitMQ                 bool   `mapstructure:"ENABLE_RABBITMQ"`
	PDFStoragePath                 string `mapstructure:"PDF_STORAGE_PATH"`
	SMTPHost                       string `mapstructure:"SMTP_HOST"`
	SMTPPort                       int    `mapstructure:"SMTP_PORT"`
	SMTPUser                       string `mapstructure:"SMTP_USER"`
	SMTPPass                       string `mapstructure:"SMTP_PASS"`
	FromEmail                      string `mapstructure:"FROM_EMAIL"`
	JWTSecret                      string `mapstructure:"JWT_SECRET"`
	AdminEmailDomain               string `mapstructure:"ADMIN_EMAIL_DOMAIN"`
	SummaryProvider                string `mapstructure:"SUMMARY_PROVIDER"`
	HFAPIKey                       string `mapstructure:"HF_API_KEY"`
	OllamaURL                      string `mapstructure:"OLLAMA_URL"`
	RedisURL                       string `mapstructure:"REDIS_URL"`
	RegistrationRateLimitPerMinute int    `mapstructure:"REGISTRATION_RATE_LIMIT_PER_MINUTE"`
	MaxCustomers                   int64  `mapstructure:"MAX_CUSTOMERS"`
}

// LoadConfig reads configuration from environment variables from the given
// path. It uses Viper to automatically bind environment variables to the
// Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "5000")
	viper.SetDefault("RABBITMQ_URL", "amqp://localhost")
	viper.SetDefault("ENABLE_RABBITMQ", false)
	viper.SetDefault("PDF_STORAGE_PATH", "./pdfs")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("FROM_EMAIL", "no-reply@example.com")
	viper.SetDefault("ADMIN_EMAIL_DOMAIN", "selise.ac.sw")
	viper.SetDefault("SUMMARY_PROVIDER", "hf")
	viper.SetDefault("OLLAMA_URL", "http://localhost:11434")
	viper.SetDefault("REGISTRATION_RATE_LIMIT_PER_MINUTE", 0)
	viper.SetDefault("MAX_CUSTOMERS", 1000)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("ENABLE_RABBITMQ")
	_ = viper.BindEnv("PDF_STORAGE_PATH")
	_ = viper.BindEnv("SMTP_HOST")
	_ = viper.BindEnv("SMTP_PORT")
	_ = viper.BindEnv("SMTP_USER")
	_ = viper.BindEnv("SMTP_PASS")
	_ = viper.BindEnv("FROM_EMAIL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("ADMIN_EMAIL_DOMAIN")
	_ = viper.BindEnv("SUMMARY_PROVIDER")
	_ = viper.BindEnv("HF_API_KEY")
	_ = viper.BindEnv("OLLAMA_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REGISTRATION_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("MAX_CUSTOMERS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
		err = nil
	}

	// Unmarshal the configuration into the Config struct.
	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	// Hosted platforms inject PORT; let it win over SERVER_PORT.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.SummaryProvider = strings.ToLower(strings.TrimSpace(config.SummaryProvider))
	config.AdminEmailDomain = strings.ToLower(strings.TrimSpace(config.AdminEmailDomain))
	config.RedisURL = strings.TrimSpace(config.RedisURL)

	if config.RegistrationRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative registration rate limit configured; disabling\" limit=%d", config.RegistrationRateLimitPerMinute)
		config.RegistrationRateLimitPerMinute = 0
	}
	if config.MaxCustomers <= 0 {
		config.MaxCustomers = 1000
	}

	return
}

// SMTPConfigured reports whether an SMTP transport can be built. The mail
// path fails fast with a dedicated error when this is false.
func (c Config) SMTPConfigured() bool {
	return strings.TrimSpace(c.SMTPHost) != "" &&
		strings.TrimSpace(c.SMTPUser) != "" &&
		strings.TrimSpace(c.SMTPPass) != ""
}
