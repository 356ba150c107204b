package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database engines
const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// Email providers
const (
	EmailConsole  = "console"
	EmailSendgrid = "sendgrid"
	EmailResend   = "resend"
)

type (
	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
		LoginRatePer15Minutes     int
		// TrustedProxies lists the CIDRs whose X-Forwarded-For header is believed.
		TrustedProxies []string
		Tracing                   bool
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite only
	}

	Config struct {
		Env                 string
		Build               string
		AppName             string
		SecretKey           string
		Debug               bool
		TestMode            bool
		SingleCoach         bool
		AllowSignup         bool
		SessionSummaryEmail bool
		FrontendBaseURL     string
		EmailProvider       string
		SendgridApiKey      string
		ResendApiKey        string
		RollbarToken        string
		Server              ServerConfig
		Database            DatabaseConfig

		defaultFromEmail string
	}
)

// Address returns the "host:port" of the postgres server.
func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, strconv.Itoa(dbc.Port))
}

// DefaultFromEmail parses the configured sender. An invalid value falls back to a bare noreply address.
func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

func (conf *Config) SetDefaultFromEmail(from string) {
	conf.defaultFromEmail = from
}

// NewConfig loads the configuration of the current environment (ENV: DEV, TEST, QA, PROD).
// Values come from `config/.env.<env>` when present, then from the environment,
// prefixed with the environment name (e.g. DEV_DATABASE_HOST).
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	setDefaults(v, env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		Env:                 env,
		Build:               v.GetString("build"),
		AppName:             v.GetString("appName"),
		SecretKey:           v.GetString("secretKey"),
		Debug:               v.GetBool("debug"),
		TestMode:            v.GetBool("testMode"),
		SingleCoach:         v.GetBool("singleCoach"),
		AllowSignup:         v.GetBool("allowSignup"),
		SessionSummaryEmail: v.GetBool("sessionSummaryEmail"),
		FrontendBaseURL:     strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		EmailProvider:       v.GetString("emailProvider"),
		SendgridApiKey:      v.GetString("sendgridApiKey"),
		ResendApiKey:        v.GetString("resendApiKey"),
		RollbarToken:        v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Addr:                      v.GetString("server.addr"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: v.GetDuration("server.passwordResetTimeoutDelta"),
			LoginRatePer15Minutes:     v.GetInt("server.loginRatePer15Minutes"),
			TrustedProxies:            splitList(v.GetString("server.trustedProxies")),
			Tracing:                   v.GetBool("server.tracing"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		defaultFromEmail: v.GetString("defaultFromEmail"),
	}
	return conf
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", env != "PROD")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "PracTrac")
	v.SetDefault("secretKey", "k3@w!4f#q7z-practrac-dev-only-$9hx)2+p0m&c=ru8")
	v.SetDefault("singleCoach", false)
	v.SetDefault("allowSignup", true)
	v.SetDefault("sessionSummaryEmail", true)
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "PracTrac <noreply@localhost>")
	v.SetDefault("emailProvider", EmailConsole)
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("resendApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)
	v.SetDefault("server.passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("server.loginRatePer15Minutes", 10)
	v.SetDefault("server.trustedProxies", "")
	v.SetDefault("server.tracing", false)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", EnginePostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "practrac")
	v.SetDefault("database.user", "practrac")
	v.SetDefault("database.password", "practrac")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")
	v.SetDefault("database.path", "practrac.db")
}

// splitList splits a comma separated value, dropping blanks.
func splitList(val string) []string {
	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
