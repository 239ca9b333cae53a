package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/validator"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Payroll  PayrollConfig
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	SSLMode     string
	AutoMigrate bool
}

// JWTConfig holds the secret shared with the identity service that issues access tokens
type JWTConfig struct {
	Secret string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Timezone       string
	AllowedOrigins []string
}

// PayrollConfig holds engine settings and run controller tuning
type PayrollConfig struct {
	Workers             int
	WorkingDaysPerMonth string
	RestDays            []string
	NightStart          string
	NightEnd            string
	LateDeductionRule   string
	NegativeNetPolicy   string
	MinimumNetPay       string
	StaleRunAfter       time.Duration
	SeedDefaults        bool
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	autoMigrate, err := strconv.ParseBool(getEnv("DB_AUTO_MIGRATE", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        dbPort,
		User:        getEnv("DB_USER", "postgres"),
		Password:    getEnv("DB_PASSWORD", ""),
		Name:        getEnv("DB_NAME", "payroll"),
		SSLMode:     getEnv("DB_SSL_MODE", "disable"),
		AutoMigrate: autoMigrate,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Timezone:       getEnv("APP_TIMEZONE", "Asia/Manila"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret: getEnv("JWT_SECRET_KEY", ""),
	}

	// Payroll configuration
	workers, err := strconv.Atoi(getEnv("PAYROLL_WORKERS", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_WORKERS: %w", err)
	}
	staleAfter, err := time.ParseDuration(getEnv("PAYROLL_STALE_RUN_AFTER", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_STALE_RUN_AFTER: %w", err)
	}
	seedDefaults, err := strconv.ParseBool(getEnv("PAYROLL_SEED_DEFAULTS", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_SEED_DEFAULTS: %w", err)
	}

	config.Payroll = PayrollConfig{
		Workers:             workers,
		WorkingDaysPerMonth: getEnv("PAYROLL_WORKING_DAYS_PER_MONTH", "22"),
		RestDays:            getEnvSlice("PAYROLL_REST_DAYS", "Saturday,Sunday"),
		NightStart:          getEnv("PAYROLL_NIGHT_START", "22:00"),
		NightEnd:            getEnv("PAYROLL_NIGHT_END", "06:00"),
		LateDeductionRule:   getEnv("PAYROLL_LATE_DEDUCTION_RULE", string(payroll.LateDeductionFlat)),
		NegativeNetPolicy:   getEnv("PAYROLL_NEGATIVE_NET_POLICY", string(payroll.NegativeNetFlag)),
		MinimumNetPay:       getEnv("PAYROLL_MINIMUM_NET_PAY", "0"),
		StaleRunAfter:       staleAfter,
		SeedDefaults:        seedDefaults,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Payroll.Workers < 1 {
		return fmt.Errorf("PAYROLL_WORKERS must be at least 1")
	}
	if c.Payroll.StaleRunAfter < time.Minute {
		return fmt.Errorf("PAYROLL_STALE_RUN_AFTER must be at least 1m")
	}
	if _, err := c.EngineSettings(); err != nil {
		return err
	}
	return nil
}

// EngineSettings converts the payroll section into engine settings.
func (c *Config) EngineSettings() (payroll.EngineSettings, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return payroll.EngineSettings{}, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}

	workingDays, err := decimal.NewFromString(c.Payroll.WorkingDaysPerMonth)
	if err != nil || !workingDays.IsPositive() {
		return payroll.EngineSettings{}, fmt.Errorf("PAYROLL_WORKING_DAYS_PER_MONTH must be a positive number")
	}

	var restDays []time.Weekday
	for _, name := range c.Payroll.RestDays {
		day, ok := validator.ParseWeekday(name)
		if !ok {
			return payroll.EngineSettings{}, fmt.Errorf("PAYROLL_REST_DAYS: unknown weekday %q", name)
		}
		restDays = append(restDays, day)
	}

	nightStart, ok := validator.ParseClock(c.Payroll.NightStart)
	if !ok {
		return payroll.EngineSettings{}, fmt.Errorf("PAYROLL_NIGHT_START must be HH:MM")
	}
	nightEnd, ok := validator.ParseClock(c.Payroll.NightEnd)
	if !ok {
		return payroll.EngineSettings{}, fmt.Errorf("PAYROLL_NIGHT_END must be HH:MM")
	}

	lateRule := payroll.LateDeductionRule(c.Payroll.LateDeductionRule)
	if lateRule != payroll.LateDeductionFlat && lateRule != payroll.LateDeductionDayBaseMultiplier {
		return payroll.EngineSettings{}, fmt.Errorf("PAYROLL_LATE_DEDUCTION_RULE must be %s or %s", payroll.LateDeductionFlat, payroll.LateDeductionDayBaseMultiplier)
	}

	policy := payroll.NegativeNetPolicy(c.Payroll.NegativeNetPolicy)
	if policy != payroll.NegativeNetFlag && policy != payroll.NegativeNetReject {
		return payroll.EngineSettings{}, fmt.Errorf("PAYROLL_NEGATIVE_NET_POLICY must be %s or %s", payroll.NegativeNetFlag, payroll.NegativeNetReject)
	}

	minimum, err := decimal.NewFromString(c.Payroll.MinimumNetPay)
	if err != nil {
		return payroll.EngineSettings{}, fmt.Errorf("invalid PAYROLL_MINIMUM_NET_PAY: %w", err)
	}

	return payroll.EngineSettings{
		Location:            loc,
		WorkingDaysPerMonth: workingDays,
		DefaultRestDays:     restDays,
		NightStartMinute:    nightStart,
		NightEndMinute:      nightEnd,
		LateDeductionRule:   lateRule,
		NegativeNetPolicy:   policy,
		MinimumNetPay:       minimum,
	}, nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key, fallback string) []string {
	value := getEnv(key, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
