package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env     string `yaml:"app_env"`
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		// IPs o CIDRs de proxies cuyo X-Forwarded-For se respeta. Vacío = nunca.
		TrustedProxies  []string `yaml:"trusted_proxies"`
		ShutdownTimeout string   `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory | remote
		Driver      string `yaml:"driver"`
		DSN         string `yaml:"dsn"`
		AutoMigrate bool   `yaml:"auto_migrate"`
		Postgres    struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	// Remote: proveedor hosteado (auth admin API + REST sobre profiles/staff).
	Remote struct {
		URL        string `yaml:"url"`
		ServiceKey string `yaml:"service_key"`
		AnonKey    string `yaml:"anon_key"`
		Timeout    string `yaml:"timeout"`
	} `yaml:"remote"`

	Cache struct {
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	JWT struct {
		Issuer    string `yaml:"issuer"`
		AccessTTL string `yaml:"access_ttl"`
		// SigningSeed: seed Ed25519 de 32 bytes en base64. Vacío = clave efímera (solo dev).
		SigningSeed string `yaml:"signing_seed"`
	} `yaml:"jwt"`

	Auth struct {
		Session struct {
			TTL string `yaml:"ttl"`
		} `yaml:"session"`
		RoleCacheTTL string `yaml:"role_cache_ttl"`
	} `yaml:"auth"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
		Setup struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"setup"`
	} `yaml:"rate"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		From               string `yaml:"from"`
		User               string `yaml:"user"`
		Password           string `yaml:"password"`
		TLSMode            string `yaml:"tls_mode"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	// Setup: cuenta admin por defecto que se provisiona al arrancar.
	Setup struct {
		Enabled        bool   `yaml:"enabled"`
		AdminEmail     string `yaml:"admin_email"`
		AdminPassword  string `yaml:"admin_password"`
		AdminFullName  string `yaml:"admin_full_name"`
		RepairPassword *bool  `yaml:"repair_password"`
		FinalCheck     *bool  `yaml:"final_check"`
		Timeout        string `yaml:"timeout"`
		NotifyEmail    string `yaml:"notify_email"`
	} `yaml:"setup"`

	Security struct {
		PasswordPolicy struct {
			MinLength     int  `yaml:"min_length"`
			RequireUpper  bool `yaml:"require_upper"`
			RequireLower  bool `yaml:"require_lower"`
			RequireDigit  bool `yaml:"require_digit"`
			RequireSymbol bool `yaml:"require_symbol"`
		} `yaml:"password_policy"`
	} `yaml:"security"`
}

// Load lee el YAML (si path no está vacío), aplica defaults y overrides de env, y valida.
// Un path vacío arranca solo con defaults + env.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "printdesk"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "15s"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Remote.Timeout == "" {
		c.Remote.Timeout = "10s"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "printdesk"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "printdesk"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "15m"
	}
	if c.Auth.Session.TTL == "" {
		c.Auth.Session.TTL = "12h"
	}
	if c.Auth.RoleCacheTTL == "" {
		c.Auth.RoleCacheTTL = "1m"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.Rate.Setup.Limit == 0 {
		c.Rate.Setup.Limit = 5
	}
	if c.Rate.Setup.Window == "" {
		c.Rate.Setup.Window = "1m"
	}
	if c.SMTP.TLSMode == "" {
		c.SMTP.TLSMode = "auto"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Setup.AdminFullName == "" {
		c.Setup.AdminFullName = "Administrator"
	}
	if c.Setup.Timeout == "" {
		c.Setup.Timeout = "30s"
	}
	if c.Security.PasswordPolicy.MinLength == 0 {
		c.Security.PasswordPolicy.MinLength = 8
	}
}

// RepairPasswordEnabled: default true si no se configuró.
func (c *Config) RepairPasswordEnabled() bool {
	return c.Setup.RepairPassword == nil || *c.Setup.RepairPassword
}

// FinalCheckEnabled: default true si no se configuró.
func (c *Config) FinalCheckEnabled() bool {
	return c.Setup.FinalCheck == nil || *c.Setup.FinalCheck
}

// IsProd indica si app_env es prod.
func (c *Config) IsProd() bool {
	return strings.EqualFold(c.App.Env, "prod")
}

// Duration parsea un campo duración ya validado; si es inválido devuelve def.
func Duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVICE_VERSION"); ok {
		c.App.Version = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvCSV("SERVER_TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvBool("STORAGE_AUTO_MIGRATE"); ok {
		c.Storage.AutoMigrate = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// REMOTE
	if v, ok := getEnvStr("REMOTE_URL"); ok {
		c.Remote.URL = v
	}
	if v, ok := getEnvStr("REMOTE_SERVICE_KEY"); ok {
		c.Remote.ServiceKey = v
	}
	if v, ok := getEnvStr("REMOTE_ANON_KEY"); ok {
		c.Remote.AnonKey = v
	}
	if v, ok := getEnvStr("REMOTE_TIMEOUT"); ok {
		c.Remote.Timeout = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// JWT / AUTH
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}
	if v, ok := getEnvStr("JWT_SIGNING_SEED"); ok {
		c.JWT.SigningSeed = v
	}
	if v, ok := getEnvStr("AUTH_SESSION_TTL"); ok {
		c.Auth.Session.TTL = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_LOGIN_LIMIT"); ok {
		c.Rate.Login.Limit = v
	}
	if v, ok := getEnvStr("RATE_LOGIN_WINDOW"); ok {
		c.Rate.Login.Window = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_USER"); ok {
		c.SMTP.User = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_TLS_MODE"); ok {
		c.SMTP.TLSMode = strings.ToLower(v)
	}

	// SETUP
	if v, ok := getEnvBool("SETUP_ENABLED"); ok {
		c.Setup.Enabled = v
	}
	if v, ok := getEnvStr("SETUP_ADMIN_EMAIL"); ok {
		c.Setup.AdminEmail = v
	}
	if v, ok := getEnvStr("SETUP_ADMIN_PASSWORD"); ok {
		c.Setup.AdminPassword = v
	}
	if v, ok := getEnvStr("SETUP_ADMIN_FULL_NAME"); ok {
		c.Setup.AdminFullName = v
	}
	if v, ok := getEnvBool("SETUP_REPAIR_PASSWORD"); ok {
		c.Setup.RepairPassword = &v
	}
	if v, ok := getEnvBool("SETUP_FINAL_CHECK"); ok {
		c.Setup.FinalCheck = &v
	}
	if v, ok := getEnvStr("SETUP_TIMEOUT"); ok {
		c.Setup.Timeout = v
	}
	if v, ok := getEnvStr("SETUP_NOTIFY_EMAIL"); ok {
		c.Setup.NotifyEmail = v
	}
}

// Validate valida los valores críticos. Junta todos los problemas en un solo error.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for driver postgres"))
		}
	case "remote":
		if strings.TrimSpace(c.Remote.URL) == "" || c.Remote.ServiceKey == "" || c.Remote.AnonKey == "" {
			errs = append(errs, errors.New("remote.url, remote.service_key and remote.anon_key are required for driver remote"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported (postgres|memory|remote)", c.Storage.Driver))
	}

	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for cache kind redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q not supported (memory|redis)", c.Cache.Kind))
	}

	for name, v := range map[string]string{
		"server.shutdown_timeout":  c.Server.ShutdownTimeout,
		"remote.timeout":           c.Remote.Timeout,
		"cache.memory.default_ttl": c.Cache.Memory.DefaultTTL,
		"jwt.access_ttl":           c.JWT.AccessTTL,
		"auth.session.ttl":         c.Auth.Session.TTL,
		"auth.role_cache_ttl":      c.Auth.RoleCacheTTL,
		"rate.login.window":        c.Rate.Login.Window,
		"rate.setup.window":        c.Rate.Setup.Window,
		"setup.timeout":            c.Setup.Timeout,
	} {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", name, v))
		}
	}

	for _, p := range c.Server.TrustedProxies {
		p = strings.TrimSpace(p)
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			errs = append(errs, fmt.Errorf("server.trusted_proxies: invalid ip or cidr %q", p))
		}
	}

	if c.Setup.Enabled {
		if !strings.Contains(c.Setup.AdminEmail, "@") {
			errs = append(errs, errors.New("setup.admin_email is required when setup is enabled"))
		}
		if c.Setup.AdminPassword == "" {
			errs = append(errs, errors.New("setup.admin_password is required when setup is enabled"))
		}
	}

	if c.IsProd() && c.JWT.SigningSeed == "" {
		errs = append(errs, errors.New("jwt.signing_seed is required in prod"))
	}

	return errors.Join(errs...)
}
