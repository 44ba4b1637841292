// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, database and wallet settings, credential provisioning, rate
// limiting, and observability. The resulting Config is built once at startup
// and passed explicitly to every component; nothing else reads the environment.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-water-backend/internal/sysutil"
)

// Database drivers.
const (
	DriverOracle = "oracle"
	DriverSQLite = "sqlite"
)

// Credential sources.
const (
	CredsSourceEnv  = "env"
	CredsSourceBlob = "blob"
	CredsSourceNone = "none"
)

// DefaultView is the reporting view queried by both data endpoints.
const DefaultView = "WATER_CONSUMPTION_DATA_V"

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig holds the connection parameters for the reporting database.
type DBConfig struct {
	Driver         string        // oracle|sqlite
	ConfigDir      string        // directory holding tnsnames.ora
	WalletDir      string        // directory holding the wallet
	User           string        // database user
	Password       string        // database password
	WalletPassword string        // wallet password (may be empty)
	DSN            string        // TNS alias, descriptor, or host:port/service
	View           string        // reporting view name
	SQLitePath     string        // SQLite file for local development
	QueryTimeout   time.Duration // per-request bound on connect+query, 0 disables
	LogQueries     bool          // GORM statement logging
	ReadyStats     bool          // readiness reports row count and latest date
}

// BlobConfig locates the wallet files in Azure Blob Storage.
type BlobConfig struct {
	ConnectionString string
	AccountURL       string // used with the default Azure credential chain
	Container        string
	PEMBlob          string
	TNSBlob          string
	Timeout          time.Duration
}

// CredsConfig controls how wallet files are materialized at startup.
type CredsConfig struct {
	Source     string // env|blob|none
	BaseDir    string // files land in <BaseDir>/creds
	PEMContent string
	TNSContent string
	Strict     bool // abort startup on provisioning failure
	Blob       BlobConfig
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 60s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route

	// Data
	DB    DBConfig
	Creds CredsConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),

		// Database (key names vary between deployments; first non-empty wins)
		DB: DBConfig{
			Driver:         strings.ToLower(getenv("DB_DRIVER", DriverOracle)),
			ConfigDir:      lookup("creds", "CONFIG_DIR", "config_dir"),
			WalletDir:      lookup("creds", "WALLET_LOCATION", "wallet_location", "WALLET_DIR"),
			User:           lookup("", "DB_USER", "user"),
			Password:       lookup("", "DB_PASSWORD", "password"),
			WalletPassword: lookup("", "WALLET_PASSWORD", "wallet_password"),
			DSN:            lookup("pocdev_high", "DB_DSN", "dsn"),
			View:           getenv("DB_VIEW", DefaultView),
			SQLitePath:     getenv("SQLITE_PATH", "water.db"),
			QueryTimeout:   getdur("DB_QUERY_TIMEOUT", 30*time.Second),
			LogQueries:     getbool("DB_LOG_QUERIES", false),
			ReadyStats:     getbool("DB_READY_STATS", false),
		},

		// Credential provisioning
		Creds: CredsConfig{
			Source:     strings.ToLower(getenv("CREDS_SOURCE", "")),
			BaseDir:    getenv("CREDS_BASE_DIR", "."),
			PEMContent: lookup("", "PEM_CONTENT", "pem_content"),
			TNSContent: lookup("", "TNS_CONTENT", "TNS", "tns"),
			Strict:     getbool("CREDS_STRICT", true),
			Blob: BlobConfig{
				ConnectionString: lookup("", "AZURE_STORAGE_CONNECTION_STRING", "azure_storage_connection_string"),
				AccountURL:       getenv("AZURE_STORAGE_ACCOUNT_URL", ""),
				Container:        lookup("", "BLOB_CONTAINER_NAME", "container_name"),
				PEMBlob:          getenv("PEM_BLOB_NAME", "ewallet.pem"),
				TNSBlob:          getenv("TNS_BLOB_NAME", "tnsnames.ora"),
				Timeout:          getdur("BLOB_TIMEOUT", 30*time.Second),
			},
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 10.0),
		RateBurst: getint("RATE_BURST", 20),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-water-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Creds.Source == "" {
		cfg.Creds.Source = inferCredsSource(cfg.Creds)
	}
	// Wallet lookups use the directory the provisioner writes to.
	cfg.DB.ConfigDir = underBase(cfg.Creds.BaseDir, cfg.DB.ConfigDir)
	cfg.DB.WalletDir = underBase(cfg.Creds.BaseDir, cfg.DB.WalletDir)

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if err := validateDB(cfg.DB); err != nil {
		return cfg, err
	}
	if err := validateCreds(cfg.Creds); err != nil {
		return cfg, err
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

func validateDB(db DBConfig) error {
	switch db.Driver {
	case DriverOracle:
		if strings.TrimSpace(db.User) == "" || db.Password == "" {
			return errors.New("DB_USER and DB_PASSWORD are required for the oracle driver")
		}
		if strings.TrimSpace(db.DSN) == "" {
			return errors.New("DB_DSN must not be empty")
		}
	case DriverSQLite:
		if strings.TrimSpace(db.SQLitePath) == "" {
			return errors.New("SQLITE_PATH must not be empty")
		}
	default:
		return errors.New("DB_DRIVER must be one of: oracle, sqlite")
	}
	if strings.TrimSpace(db.View) == "" {
		return errors.New("DB_VIEW must not be empty")
	}
	if db.QueryTimeout < 0 {
		return errors.New("DB_QUERY_TIMEOUT must be >= 0")
	}
	return nil
}

func validateCreds(c CredsConfig) error {
	switch c.Source {
	case CredsSourceEnv, CredsSourceNone:
	case CredsSourceBlob:
		if c.Blob.ConnectionString == "" && c.Blob.AccountURL == "" {
			return errors.New("AZURE_STORAGE_CONNECTION_STRING or AZURE_STORAGE_ACCOUNT_URL is required for CREDS_SOURCE=blob")
		}
		if strings.TrimSpace(c.Blob.Container) == "" {
			return errors.New("BLOB_CONTAINER_NAME is required for CREDS_SOURCE=blob")
		}
		if c.Blob.PEMBlob == "" || c.Blob.TNSBlob == "" {
			return errors.New("PEM_BLOB_NAME and TNS_BLOB_NAME must not be empty")
		}
		if c.Blob.Timeout <= 0 {
			return errors.New("BLOB_TIMEOUT must be > 0")
		}
	default:
		return errors.New("CREDS_SOURCE must be one of: env, blob, none")
	}
	if strings.TrimSpace(c.BaseDir) == "" {
		return errors.New("CREDS_BASE_DIR must not be empty")
	}
	return nil
}

// underBase joins a relative dir onto base. Absolute dirs are kept.
func underBase(base, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}

// inferCredsSource picks blob when a store is configured, env when inline
// content is present, and none otherwise.
func inferCredsSource(c CredsConfig) string {
	switch {
	case c.Blob.ConnectionString != "" || c.Blob.AccountURL != "":
		return CredsSourceBlob
	case c.PEMContent != "" || c.TNSContent != "":
		return CredsSourceEnv
	default:
		return CredsSourceNone
	}
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

// lookup returns the first non-empty value among keys, or def.
func lookup(def string, keys ...string) string {
	vals := make([]string, 0, len(keys))
	for _, k := range keys {
		vals = append(vals, os.Getenv(k))
	}
	if v := sysutil.FirstNonEmpty(vals...); v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if sysutil.IsTruthy(v) {
			return true
		}
		if sysutil.IsFalsy(v) {
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
