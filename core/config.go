package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Port            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres (lib/pq) | pgx
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	JWTConfig struct {
		ExpirationHours        int
		RefreshExpirationDelta time.Duration
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	InviteConfig struct {
		MaxAttempts int
		RetryDelay  time.Duration
		DedupeTTL   time.Duration
	}

	StorageConfig struct {
		SupabaseURL string
		SupabaseKey string
		Bucket      string
	}

	Config struct {
		Env              string // DEV (default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		AppName          string
		Build            string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		JWT      JWTConfig
		Redis    RedisConfig
		Invite   InviteConfig
		Storage  StorageConfig
	}
)

// Address returns the database "host:port".
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// JWTExpirationDelta is the lifetime of an access token.
func (c *Config) JWTExpirationDelta() time.Duration {
	return time.Duration(c.JWT.ExpirationHours) * time.Hour
}

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the env name, eg. `PROD_DATABASE_HOST`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Capitalize")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "k9#2v!t0x$w4qz&8m1c@r7e^u5b(j3)hn6p*d_ly=gsfo")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Capitalize <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "capitalize")
	v.SetDefault("database.user", "capitalize")
	v.SetDefault("database.password", "capitalize")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("jwt.expirationHours", 72)
	v.SetDefault("jwt.refreshExpirationDelta", 7*24*time.Hour)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("invite.maxAttempts", 3)
	v.SetDefault("invite.retryDelay", 500*time.Millisecond)
	v.SetDefault("invite.dedupeTTL", 24*time.Hour)

	v.SetDefault("storage.supabaseURL", "")
	v.SetDefault("storage.supabaseKey", "")
	v.SetDefault("storage.bucket", "lessons")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail: *fromEmail,
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetString("server.port"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		JWT: JWTConfig{
			ExpirationHours:        v.GetInt("jwt.expirationHours"),
			RefreshExpirationDelta: v.GetDuration("jwt.refreshExpirationDelta"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Invite: InviteConfig{
			MaxAttempts: v.GetInt("invite.maxAttempts"),
			RetryDelay:  v.GetDuration("invite.retryDelay"),
			DedupeTTL:   v.GetDuration("invite.dedupeTTL"),
		},
		Storage: StorageConfig{
			SupabaseURL: v.GetString("storage.supabaseURL"),
			SupabaseKey: v.GetString("storage.supabaseKey"),
			Bucket:      v.GetString("storage.bucket"),
		},
	}
}

// ServerAddress returns the address the API listens on.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf(":%s", c.Server.Port)
}

// NewTestConfig returns a Config suitable for tests; no files or env are read.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		Debug:            false,
		TestMode:         true,
		AppName:          "Capitalize",
		Build:            "test",
		SecretKey:        "secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Capitalize", Address: "noreply@localhost"},
		Server:           ServerConfig{Host: "localhost", Port: "8000", ShutdownTimeout: time.Second},
		JWT:              JWTConfig{ExpirationHours: 1, RefreshExpirationDelta: 4 * time.Hour},
		Invite:           InviteConfig{MaxAttempts: 3, DedupeTTL: time.Hour},
		Storage:          StorageConfig{Bucket: "lessons"},
	}
}
