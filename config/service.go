package config

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/AntonStoeckl/library-lending/lending/core"
	"github.com/AntonStoeckl/library-lending/shell"
)

// ErrInvalidConfig marks settings that are missing or malformed.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	defaultSQLiteDSN      = "file:library.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
	defaultRemoteTimeout  = 5 * time.Second
	defaultIdentityCache  = 1024
	defaultIdentityTTL    = 5 * time.Minute
	defaultShutdownPeriod = 10 * time.Second
)

// Common holds the settings both services share.
type Common struct {
	ServiceName    string
	HTTPAddr       string
	LogLevel       slog.Level
	Database       Database
	PageSizeMax    int
	InternalToken  string
	CORSOrigins    []string
	Telemetry      Telemetry
	ShutdownPeriod time.Duration
}

// Identity selects how bearer tokens are verified: locally with JWTSecret, or remotely
// through the identity service at URL. JWTSecret wins when both are set.
type Identity struct {
	JWTSecret string
	URL       string
	CacheSize int
	CacheTTL  time.Duration
}

// Inventory configures the inventory service.
type Inventory struct {
	Common
	Identity          Identity
	LendingURL        string
	LendingTimeout    time.Duration
	PropagateAttempts int
}

// Lending configures the lending service.
type Lending struct {
	Common
	Identity       Identity
	InventoryURL   string
	RemoteTimeout  time.Duration
	Policy         core.Policy
	SweepHour      int
	SweepMinute    int
	SweepInterval  time.Duration
	SweepOnStartup bool
}

// loader collects every malformed value instead of stopping at the first.
type loader struct {
	errs []error
}

func (l *loader) int(key string, fallback int) int {
	value, err := getEnvInt(key, fallback)
	l.add(err)

	return value
}

func (l *loader) duration(key string, fallback time.Duration) time.Duration {
	value, err := getEnvDuration(key, fallback)
	l.add(err)

	return value
}

func (l *loader) bool(key string, fallback bool) bool {
	value, err := getEnvBool(key, fallback)
	l.add(err)

	return value
}

func (l *loader) require(ok bool, key, reason string) {
	if !ok {
		l.add(invalid(key, reason))
	}
}

func (l *loader) add(err error) {
	if err != nil {
		l.errs = append(l.errs, err)
	}
}

func (l *loader) err() error {
	return errors.Join(l.errs...)
}

func loadCommon(l *loader, serviceName, defaultAddr string) Common {
	common := Common{
		ServiceName:    getEnv("SERVICE_NAME", serviceName),
		HTTPAddr:       getEnv("HTTP_ADDR", defaultAddr),
		PageSizeMax:    l.int("PAGE_SIZE_MAX", shell.MaxPageSize),
		InternalToken:  getEnv("INTERNAL_TOKEN", ""),
		CORSOrigins:    getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ShutdownPeriod: l.duration("SHUTDOWN_PERIOD", defaultShutdownPeriod),
		Database: Database{
			Driver:          getEnv("DB_DRIVER", DriverSQLite),
			DSN:             getEnv("DB_DSN", defaultSQLiteDSN),
			UsePGXPool:      l.bool("DB_USE_PGXPOOL", false),
			MaxOpenConns:    l.int("DB_MAX_OPEN_CONNS", defaultMaxOpenConns),
			MaxIdleConns:    l.int("DB_MAX_IDLE_CONNS", defaultMaxIdleConns),
			ConnMaxLifetime: l.duration("DB_CONN_MAX_LIFETIME", defaultConnMaxLifetime),
			ApplySchema:     l.bool("DB_APPLY_SCHEMA", true),
		},
		Telemetry: Telemetry{
			ServiceName:    getEnv("SERVICE_NAME", serviceName),
			OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			OTLPLogsURL:    getEnv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", ""),
			Insecure:       l.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			MetricInterval: l.duration("OTEL_METRIC_EXPORT_INTERVAL", defaultMetricInterval),
		},
	}

	if err := common.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "INFO"))); err != nil {
		l.add(invalid("LOG_LEVEL", "must be DEBUG, INFO, WARN or ERROR"))
	}

	l.require(common.PageSizeMax > 0, "PAGE_SIZE_MAX", "must be positive")
	l.require(common.Database.Valid(), "DB_DRIVER", "must be one of pgx, postgres or sqlite")
	l.require(!common.Database.UsePGXPool || common.Database.Driver == DriverPGX, "DB_USE_PGXPOOL", "needs DB_DRIVER=pgx")

	return common
}

func loadIdentity(l *loader) Identity {
	identity := Identity{
		JWTSecret: getEnv("JWT_SECRET", ""),
		URL:       strings.TrimSuffix(getEnv("IDENTITY_URL", ""), "/"),
		CacheSize: l.int("IDENTITY_CACHE_SIZE", defaultIdentityCache),
		CacheTTL:  l.duration("IDENTITY_CACHE_TTL", defaultIdentityTTL),
	}

	l.require(identity.JWTSecret != "" || identity.URL != "", "JWT_SECRET", "or IDENTITY_URL must be set")
	l.require(identity.CacheSize > 0, "IDENTITY_CACHE_SIZE", "must be positive")

	return identity
}

// LoadInventory reads the inventory service settings.
func LoadInventory() (Inventory, error) {
	l := &loader{}

	cfg := Inventory{
		Common:            loadCommon(l, "inventory-service", ":8081"),
		Identity:          loadIdentity(l),
		LendingURL:        strings.TrimSuffix(getEnv("LENDING_URL", ""), "/"),
		LendingTimeout:    l.duration("LENDING_TIMEOUT", defaultRemoteTimeout),
		PropagateAttempts: l.int("TITLE_PROPAGATION_ATTEMPTS", 4),
	}

	l.require(cfg.PropagateAttempts > 0, "TITLE_PROPAGATION_ATTEMPTS", "must be positive")

	return cfg, l.err()
}

// LoadLending reads the lending service settings.
func LoadLending() (Lending, error) {
	l := &loader{}
	defaults := core.DefaultPolicy()

	cfg := Lending{
		Common:        loadCommon(l, "lending-service", ":8082"),
		Identity:      loadIdentity(l),
		InventoryURL:  strings.TrimSuffix(getEnv("INVENTORY_URL", ""), "/"),
		RemoteTimeout: l.duration("INVENTORY_TIMEOUT", defaultRemoteTimeout),
		Policy: core.Policy{
			MaxBorrowCount:    l.int("MAX_BORROW_COUNT", defaults.MaxBorrowCount),
			MaxRenewCount:     l.int("MAX_RENEW_COUNT", defaults.MaxRenewCount),
			DefaultBorrowDays: l.int("DEFAULT_BORROW_DAYS", defaults.DefaultBorrowDays),
			DefaultRenewDays:  l.int("DEFAULT_RENEW_DAYS", defaults.DefaultRenewDays),
		},
		SweepInterval:  l.duration("SWEEP_INTERVAL", 0),
		SweepOnStartup: l.bool("SWEEP_ON_STARTUP", false),
	}

	cfg.SweepHour, cfg.SweepMinute = parseClockTime(l, "SWEEP_AT", getEnv("SWEEP_AT", "01:00"))

	l.require(cfg.InventoryURL != "", "INVENTORY_URL", "must be set")
	l.require(cfg.RemoteTimeout > 0, "INVENTORY_TIMEOUT", "must be positive")
	l.require(cfg.Policy.MaxBorrowCount > 0, "MAX_BORROW_COUNT", "must be positive")
	l.require(cfg.Policy.MaxRenewCount >= 0, "MAX_RENEW_COUNT", "must not be negative")
	l.require(cfg.Policy.DefaultBorrowDays > 0, "DEFAULT_BORROW_DAYS", "must be positive")
	l.require(cfg.Policy.DefaultRenewDays > 0, "DEFAULT_RENEW_DAYS", "must be positive")
	l.require(cfg.SweepInterval >= 0, "SWEEP_INTERVAL", "must not be negative")

	return cfg, l.err()
}

// parseClockTime reads "HH:MM" in 24 hour notation.
func parseClockTime(l *loader, key, raw string) (int, int) {
	hourText, minuteText, found := strings.Cut(raw, ":")
	hour, hourErr := strconv.Atoi(hourText)
	minute, minuteErr := strconv.Atoi(minuteText)

	if !found || hourErr != nil || minuteErr != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		l.add(invalid(key, "must be HH:MM"))
		return 0, 0
	}

	return hour, minute
}
