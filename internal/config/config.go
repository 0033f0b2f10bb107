package config

import (
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`

	AuthxURL          string `env:"AUTHX_URL" envDefault:"http://localhost:8000"`
	AuthxClientID     string `env:"AUTHX_CLIENT_ID"`
	AuthxClientSecret string `env:"AUTHX_CLIENT_SECRET"`
	AuthxRedirectURI  string `env:"AUTHX_REDIRECT_URI"`
	AuthxVerifySSL    bool   `env:"AUTHX_VERIFY_SSL" envDefault:"true"`
	AuthxLogoutURL    string `env:"AUTHX_LOGOUT_URL"`
	LogoutFromAuthx   bool   `env:"LOGOUT_FROM_AUTHX" envDefault:"true"`

	AdminEmails                 []string `env:"ADMIN_EMAILS"`
	PreventNonAdminUserCreation bool     `env:"PREVENT_NON_ADMIN_USER_CREATION"`
	RememberUser                bool     `env:"REMEMBER_USER" envDefault:"true"`
	PostLoginRedirect           string   `env:"POST_LOGIN_REDIRECT" envDefault:"/dashboard"`

	UsersTable string `env:"USERS_TABLE" envDefault:"users"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	DatabaseDSN string `env:"DATABASE_DSN"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IssuerBaseURL returns the AuthX base URL without a trailing slash.
func (c Config) IssuerBaseURL() string {
	return strings.TrimRight(c.AuthxURL, "/")
}

// LogoutURL returns the remote logout destination: the explicit override
// when configured, otherwise <issuer>/logout.
func (c Config) LogoutURL() string {
	if strings.TrimSpace(c.AuthxLogoutURL) != "" {
		return c.AuthxLogoutURL
	}
	return c.IssuerBaseURL() + "/logout"
}
