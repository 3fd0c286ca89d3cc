package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"liyu1981.xyz/sos-safety-service/pkg/common"
)

type Config struct {
	DBType string
	DBPath string

	HTTPHostPort    string
	GRPCHostPort    string
	DocstoreAddr    string
	DocstoreBackend string
	RedisAddr       string
	AMQPURL         string
	GeocoderURL     string

	UserID   string
	UserName string

	CountdownSeconds     int
	LocationInterval     time.Duration
	LocationFastest      time.Duration
	LocationDisplacement float64
	LocationMaxAge       time.Duration
	RetentionDays        int
	RetentionSchedule    string
	EmergencyNumber      string
	MaxNotified          int

	DefaultRate  float64
	DefaultBurst int
}

// Load reads the given .env files (".env" when none are named) into the
// process environment and builds a Config from it. A missing default .env
// is not an error; a missing file that was asked for by name is.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return nil, fmt.Errorf("failed to load %v: %w", files, err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	var err error
	c := &Config{
		DBType:            envString(common.EnvKeySosDBType, "file"),
		DBPath:            envString(common.EnvKeySosDbPath, "sos.db"),
		HTTPHostPort:      envString(common.EnvKeySosHttpHostPort, ":1080"),
		GRPCHostPort:      envString(common.EnvKeySosGrpcHostPort, ":50051"),
		DocstoreAddr:      envString(common.EnvKeySosDocstoreAddr, ""),
		DocstoreBackend:   envString(common.EnvKeySosDocstoreBackend, "memory"),
		RedisAddr:         envString(common.EnvKeySosRedisAddr, "localhost:6379"),
		AMQPURL:           envString(common.EnvKeySosAmqpURL, ""),
		GeocoderURL:       envString(common.EnvKeySosGeocoderURL, ""),
		UserID:            envString(common.EnvKeySosUserID, "local-user"),
		UserName:          envString(common.EnvKeySosUserName, "Someone"),
		RetentionSchedule: envString(common.EnvKeySosRetentionSchedule, "@daily"),
		EmergencyNumber:   envString(common.EnvKeySosEmergencyNumber, "911"),
	}

	if c.CountdownSeconds, err = envInt(common.EnvKeySosCountdownSeconds, 5); err != nil {
		return nil, err
	}
	if c.LocationInterval, err = envMillis(common.EnvKeySosLocationIntervalMs, 10000); err != nil {
		return nil, err
	}
	if c.LocationFastest, err = envMillis(common.EnvKeySosLocationFastestMs, 5000); err != nil {
		return nil, err
	}
	if c.LocationDisplacement, err = envFloat(common.EnvKeySosLocationDisplacement, 10); err != nil {
		return nil, err
	}
	if c.LocationMaxAge, err = envMillis(common.EnvKeySosLocationMaxAgeMs, 120000); err != nil {
		return nil, err
	}
	if c.RetentionDays, err = envInt(common.EnvKeySosRetentionDays, 30); err != nil {
		return nil, err
	}
	if c.MaxNotified, err = envInt(common.EnvKeySosMaxNotified, 3); err != nil {
		return nil, err
	}
	if c.DefaultRate, err = envFloat(common.EnvKeySosDefaultRate, 1); err != nil {
		return nil, err
	}
	if c.DefaultBurst, err = envInt(common.EnvKeySosDefaultBurst, 5); err != nil {
		return nil, err
	}

	return c, c.Validate()
}

func (c *Config) Validate() error {
	switch c.DBType {
	case "file", "memory":
	default:
		return fmt.Errorf("unknown %s: %q", common.EnvKeySosDBType, c.DBType)
	}
	switch c.DocstoreBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown %s: %q", common.EnvKeySosDocstoreBackend, c.DocstoreBackend)
	}
	if c.CountdownSeconds < 0 {
		return fmt.Errorf("%s must not be negative", common.EnvKeySosCountdownSeconds)
	}
	if c.LocationFastest <= 0 || c.LocationInterval < c.LocationFastest {
		return fmt.Errorf("%s must be positive and not exceed %s",
			common.EnvKeySosLocationFastestMs, common.EnvKeySosLocationIntervalMs)
	}
	if c.MaxNotified <= 0 {
		return fmt.Errorf("%s must be positive", common.EnvKeySosMaxNotified)
	}
	if c.DefaultRate <= 0 || c.DefaultBurst <= 0 {
		return fmt.Errorf("%s and %s must be positive", common.EnvKeySosDefaultRate, common.EnvKeySosDefaultBurst)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s, should be an int value: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s, should be a float64 value: %w", key, err)
	}
	return f, nil
}

func envMillis(key string, fallback int) (time.Duration, error) {
	n, err := envInt(key, fallback)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Millisecond, nil
}
