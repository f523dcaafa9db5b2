package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
		AuthRateLimit             float64 // requests per second, per client IP
		AuthRateBurst             int
		AllowOrigins              []string
	}

	DatabaseConfig struct {
		Backend       string // postgres | inmem
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	StorageConfig struct {
		Backend       string // minio | inmem
		Endpoint      string
		AccessKey     string
		SecretKey     string
		Bucket        string
		UseTLS        bool
		PresignExpiry time.Duration
	}

	OMRConfig struct {
		Scanner       string // native | script
		ScriptCommand []string
		LayoutPath    string // empty: embedded default layout
		DebugDir      string // empty: no debug images
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		RollbarToken     string
		SendgridApiKey   string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
		OMR      OMRConfig
	}
)

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

// NewConfig loads the configuration of the current environment (ENV: DEV (default), TEST, QA, PROD).
// Values are read from `config/.env.<env>` when present, then from `<ENV>_`-prefixed environment variables.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	return loadConfig(env, newViper(env))
}

func newViper(env string) *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("test_mode", env == "TEST")
	v.SetDefault("build", "develop")
	v.SetDefault("app_name", "Darasa")
	v.SetDefault("secret_key", "")
	v.SetDefault("rollbar_token", "")
	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("default_from_email", "Darasa <noreply@localhost>")

	v.SetDefault("server_host", "localhost")
	v.SetDefault("server_address", ":8000")
	v.SetDefault("server_debug_host", ":4000")
	v.SetDefault("server_shutdown_timeout", 5*time.Second)
	v.SetDefault("server_jwt_expiration_delta", 7*24*time.Hour)
	v.SetDefault("server_jwt_refresh_expiration_delta", 30*24*time.Hour)
	v.SetDefault("server_password_reset_timeout_delta", 3*24*time.Hour)
	v.SetDefault("server_auth_rate_limit", 5.0)
	v.SetDefault("server_auth_rate_burst", 10)
	v.SetDefault("server_allow_origins", []string{"*"})

	v.SetDefault("database_backend", "postgres")
	v.SetDefault("database_engine", "postgres")
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", "5432")
	v.SetDefault("database_name", "darasa")
	v.SetDefault("database_user", "")
	v.SetDefault("database_password", "")
	v.SetDefault("database_admin_user", "postgres")
	v.SetDefault("database_admin_password", "")
	v.SetDefault("database_disable_tls", env == "DEV" || env == "TEST")

	v.SetDefault("storage_backend", "minio")
	v.SetDefault("storage_endpoint", "localhost:9000")
	v.SetDefault("storage_access_key", "")
	v.SetDefault("storage_secret_key", "")
	v.SetDefault("storage_bucket", "darasa")
	v.SetDefault("storage_use_tls", false)
	v.SetDefault("storage_presign_expiry", 15*time.Minute)

	v.SetDefault("omr_scanner", "native")
	v.SetDefault("omr_script_command", []string{"python3", "omr.py"})
	v.SetDefault("omr_layout_path", "")
	v.SetDefault("omr_debug_dir", "")

	v.SetEnvPrefix(env)
	v.AutomaticEnv()
	return v
}

func loadConfig(env string, v *viper.Viper) *Config {
	from, err := mail.ParseAddress(v.GetString("default_from_email"))
	if err != nil {
		from = &mail.Address{Address: v.GetString("default_from_email")}
	}

	conf := &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("test_mode"),
		AppName:          v.GetString("app_name"),
		SecretKey:        v.GetString("secret_key"),
		RollbarToken:     v.GetString("rollbar_token"),
		SendgridApiKey:   v.GetString("sendgrid_api_key"),
		FrontendBaseURL:  strings.TrimSuffix(v.GetString("frontend_base_url"), "/"),
		DefaultFromEmail: *from,
		Server: ServerConfig{
			Host:                      v.GetString("server_host"),
			Address:                   v.GetString("server_address"),
			DebugHost:                 v.GetString("server_debug_host"),
			ShutdownTimeout:           v.GetDuration("server_shutdown_timeout"),
			JWTExpirationDelta:        v.GetDuration("server_jwt_expiration_delta"),
			JWTRefreshExpirationDelta: v.GetDuration("server_jwt_refresh_expiration_delta"),
			PasswordResetTimeoutDelta: v.GetDuration("server_password_reset_timeout_delta"),
			AuthRateLimit:             v.GetFloat64("server_auth_rate_limit"),
			AuthRateBurst:             v.GetInt("server_auth_rate_burst"),
			AllowOrigins:              v.GetStringSlice("server_allow_origins"),
		},
		Database: DatabaseConfig{
			Backend:       v.GetString("database_backend"),
			Engine:        v.GetString("database_engine"),
			Host:          v.GetString("database_host"),
			Port:          v.GetString("database_port"),
			Name:          v.GetString("database_name"),
			User:          v.GetString("database_user"),
			Password:      v.GetString("database_password"),
			AdminUser:     v.GetString("database_admin_user"),
			AdminPassword: v.GetString("database_admin_password"),
			DisableTLS:    v.GetBool("database_disable_tls"),
		},
		Storage: StorageConfig{
			Backend:       v.GetString("storage_backend"),
			Endpoint:      v.GetString("storage_endpoint"),
			AccessKey:     v.GetString("storage_access_key"),
			SecretKey:     v.GetString("storage_secret_key"),
			Bucket:        v.GetString("storage_bucket"),
			UseTLS:        v.GetBool("storage_use_tls"),
			PresignExpiry: v.GetDuration("storage_presign_expiry"),
		},
		OMR: OMRConfig{
			Scanner:       v.GetString("omr_scanner"),
			ScriptCommand: v.GetStringSlice("omr_script_command"),
			LayoutPath:    v.GetString("omr_layout_path"),
			DebugDir:      v.GetString("omr_debug_dir"),
		},
	}

	// never run DEV|TEST without a signing key
	if conf.SecretKey == "" && (conf.Debug || conf.TestMode) {
		conf.SecretKey = "dev-secret:poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy"
	}
	return conf
}

// Validate checks that settings required outside of DEV|TEST are set.
func (c *Config) Validate() error {
	if c.Debug || c.TestMode {
		return nil
	}
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(c.SecretKey, "SECRET_KEY"),
		vala.StringNotEmpty(c.Database.Name, "DATABASE_NAME"),
		vala.StringNotEmpty(c.Storage.Bucket, "STORAGE_BUCKET"),
	).Check()
	return errors.Wrap(err, "invalid config")
}

// NewTestConfig returns a Config suitable for tests: in-memory backends and short-lived tokens.
func NewTestConfig() *Config {
	conf := loadConfig("TEST", newViper("TEST"))
	conf.Database.Backend = "inmem"
	conf.Storage.Backend = "inmem"
	conf.Server.AuthRateLimit = 0
	return conf
}
