package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	AuthModeDev    = "dev"
	AuthModeJWT    = "jwt"
	AuthModeRemote = "remote"

	ChannelDevLog = "devlog"
	ChannelEmail  = "email"
	ChannelSMS    = "sms"
)

type Config struct {
	Port         string        `mapstructure:"PORT"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"HTTP_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"HTTP_WRITE_TIMEOUT"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	AppName   string `mapstructure:"APP_NAME"`

	// Vacío => stores in-memory (modo dev).
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS"`
	DBAutoMigrate bool   `mapstructure:"DB_AUTO_MIGRATE"`

	AuthMode          string `mapstructure:"AUTH_MODE"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	JWTIssuer         string `mapstructure:"JWT_ISSUER"`
	AuthServiceURL    string `mapstructure:"AUTH_SERVICE_URL"`
	AuthServiceAPIKey string `mapstructure:"AUTH_SERVICE_API_KEY"`

	DeliveryChannel   string `mapstructure:"DELIVERY_CHANNEL"`
	SendGridAPIKey    string `mapstructure:"SENDGRID_API_KEY"`
	SendGridBaseURL   string `mapstructure:"SENDGRID_BASE_URL"`
	SendGridFromEmail string `mapstructure:"SENDGRID_FROM_EMAIL"`
	SendGridFromName  string `mapstructure:"SENDGRID_FROM_NAME"`
	TwilioAccountSID  string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken   string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioFrom        string `mapstructure:"TWILIO_FROM"`

	OTPTTL           time.Duration `mapstructure:"OTP_TTL"`
	OTPMaxAttempts   int           `mapstructure:"OTP_MAX_ATTEMPTS"`
	OTPAttemptWindow time.Duration `mapstructure:"OTP_ATTEMPT_WINDOW"`

	// 0 => grants sin vencimiento.
	AccessGrantTTL time.Duration `mapstructure:"ACCESS_GRANT_TTL"`
}

var keys = []string{
	"PORT", "ENV", "HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT",
	"LOG_LEVEL", "LOG_FORMAT", "APP_NAME",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_AUTO_MIGRATE",
	"AUTH_MODE", "JWT_SECRET", "JWT_ISSUER", "AUTH_SERVICE_URL", "AUTH_SERVICE_API_KEY",
	"DELIVERY_CHANNEL", "SENDGRID_API_KEY", "SENDGRID_BASE_URL", "SENDGRID_FROM_EMAIL", "SENDGRID_FROM_NAME",
	"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_FROM",
	"OTP_TTL", "OTP_MAX_ATTEMPTS", "OTP_ATTEMPT_WINDOW",
	"ACCESS_GRANT_TTL",
}

// Load lee .env (si existe) y luego variables de entorno.
// Las variables de entorno reales siempre ganan sobre el archivo.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("HTTP_READ_TIMEOUT", 5*time.Second)
	v.SetDefault("HTTP_WRITE_TIMEOUT", 10*time.Second)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("APP_NAME", "medivault")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_AUTO_MIGRATE", false)
	v.SetDefault("AUTH_MODE", AuthModeDev)
	v.SetDefault("DELIVERY_CHANNEL", ChannelDevLog)
	v.SetDefault("SENDGRID_BASE_URL", "https://api.sendgrid.com")
	v.SetDefault("SENDGRID_FROM_EMAIL", "noreply@medivault.com")
	v.SetDefault("SENDGRID_FROM_NAME", "MediVault")
	v.SetDefault("OTP_TTL", 10*time.Minute)
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("OTP_ATTEMPT_WINDOW", 10*time.Minute)
	v.SetDefault("ACCESS_GRANT_TTL", time.Duration(0))

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	cfg.DeliveryChannel = strings.ToLower(strings.TrimSpace(cfg.DeliveryChannel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate revisa combinaciones que no tienen sentido para arrancar.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthModeDev:
		if !c.IsDev() {
			return fmt.Errorf("AUTH_MODE=dev is only allowed with ENV=development (got ENV=%q)", c.Env)
		}
	case AuthModeJWT:
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_MODE=jwt")
		}
	case AuthModeRemote:
		if strings.TrimSpace(c.AuthServiceURL) == "" || strings.TrimSpace(c.AuthServiceAPIKey) == "" {
			return fmt.Errorf("AUTH_SERVICE_URL and AUTH_SERVICE_API_KEY are required when AUTH_MODE=remote")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q, %q or %q, got %q", AuthModeDev, AuthModeJWT, AuthModeRemote, c.AuthMode)
	}

	switch c.DeliveryChannel {
	case ChannelDevLog:
		if !c.IsDev() {
			return fmt.Errorf("DELIVERY_CHANNEL=devlog is only allowed with ENV=development")
		}
	case ChannelEmail:
		if strings.TrimSpace(c.SendGridAPIKey) == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required when DELIVERY_CHANNEL=email")
		}
	case ChannelSMS:
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioFrom == "" {
			return fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM are required when DELIVERY_CHANNEL=sms")
		}
	default:
		return fmt.Errorf("DELIVERY_CHANNEL must be %q, %q or %q, got %q", ChannelDevLog, ChannelEmail, ChannelSMS, c.DeliveryChannel)
	}

	if c.OTPTTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive")
	}
	if c.OTPMaxAttempts <= 0 || c.OTPAttemptWindow <= 0 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS and OTP_ATTEMPT_WINDOW must be positive")
	}
	if c.AccessGrantTTL < 0 {
		return fmt.Errorf("ACCESS_GRANT_TTL must not be negative")
	}
	return nil
}
