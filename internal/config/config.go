package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration for the status dashboard service.
type Config struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	StatusAPIEndpoint string
	StatusAPITimeout  time.Duration
	FetchInterval     time.Duration
	UIRefreshSeconds  int

	DefaultViewLimit int
	LatestLimit      int
	LatestBy         string

	DBEnabled      bool
	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	DBConnTimeout  time.Duration
	DBQueryTimeout time.Duration

	HistorySQLitePath string
	HistoryKeepCycles int

	RedisEnabled     bool
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisSnapshotTTL time.Duration

	ERDDAPTargets  []string
	THREDDSTargets []string
	ProbeTimeout   time.Duration
	ProbeInterval  time.Duration
}

// FromEnv loads configuration from environment variables with sensible defaults.
func FromEnv() Config {
	loadEnvDefaultsFromFiles()

	return Config{
		ListenAddr:      getEnv("APP_LISTEN_ADDR", ":8080"),
		ReadTimeout:     time.Duration(getEnvInt("APP_READ_TIMEOUT_SEC", 10)) * time.Second,
		WriteTimeout:    time.Duration(getEnvInt("APP_WRITE_TIMEOUT_SEC", 20)) * time.Second,
		ShutdownTimeout: time.Duration(getEnvInt("APP_SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,

		StatusAPIEndpoint: getEnv("APP_STATUS_API_ENDPOINT", "http://127.0.0.1:5000/api/deployment"),
		StatusAPITimeout:  time.Duration(getEnvInt("APP_STATUS_API_TIMEOUT_SEC", 30)) * time.Second,
		FetchInterval:     time.Duration(getEnvInt("APP_FETCH_INTERVAL_SEC", 3600)) * time.Second,
		UIRefreshSeconds:  getEnvInt("APP_UI_REFRESH_SEC", 3600),

		DefaultViewLimit: getEnvInt("APP_DEFAULT_VIEW_LIMIT", 500),
		LatestLimit:      getEnvInt("APP_LATEST_LIMIT", 20),
		LatestBy:         getEnv("APP_LATEST_BY", "coverage_end"),

		DBEnabled:      getEnvBool("APP_DB_ENABLED", false),
		DBHost:         getEnv("APP_DB_HOST", "127.0.0.1"),
		DBPort:         getEnvInt("APP_DB_PORT", 3306),
		DBUser:         getEnv("APP_DB_USER", "gliderdac"),
		DBPassword:     getEnv("APP_DB_PASSWORD", "demo"),
		DBName:         getEnv("APP_DB_NAME", "gliderdac"),
		DBConnTimeout:  time.Duration(getEnvInt("APP_DB_CONN_TIMEOUT_SEC", 5)) * time.Second,
		DBQueryTimeout: time.Duration(getEnvInt("APP_DB_QUERY_TIMEOUT_SEC", 10)) * time.Second,

		HistorySQLitePath: getEnv("APP_HISTORY_SQLITE_PATH", ""),
		HistoryKeepCycles: getEnvInt("APP_HISTORY_KEEP_CYCLES", 2000),

		RedisEnabled:     getEnvBool("APP_REDIS_ENABLED", false),
		RedisAddr:        getEnv("APP_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:    getEnv("APP_REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("APP_REDIS_DB", 0),
		RedisSnapshotTTL: time.Duration(getEnvInt("APP_REDIS_SNAPSHOT_TTL_SEC", 86400)) * time.Second,

		ERDDAPTargets:  getEnvList("APP_ERDDAP_TARGETS", nil),
		THREDDSTargets: getEnvList("APP_THREDDS_TARGETS", nil),
		ProbeTimeout:   time.Duration(getEnvInt("APP_PROBE_TIMEOUT_SEC", 10)) * time.Second,
		ProbeInterval:  time.Duration(getEnvInt("APP_PROBE_INTERVAL_SEC", 300)) * time.Second,
	}
}

// loadEnvDefaultsFromFiles applies env-file defaults. godotenv.Load never
// overrides variables already present in the process environment.
func loadEnvDefaultsFromFiles() {
	candidates := []string{
		"./glider-dac-status.env",
		"/etc/default/glider-dac-status",
	}
	if explicit := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); explicit != "" {
		candidates = append([]string{explicit}, candidates...)
	}
	candidates = append(candidates, "/etc/glider-dac-status/config.env")

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		_ = godotenv.Load(candidate)
	}
}

// MySQLDSN returns a mysql driver DSN with safe defaults for TCP access.
func (c Config) MySQLDSN() string {
	params := url.Values{}
	params.Set("parseTime", "true")
	params.Set("timeout", c.DBConnTimeout.String())
	params.Set("readTimeout", c.DBQueryTimeout.String())
	params.Set("writeTimeout", c.DBQueryTimeout.String())
	params.Set("charset", "utf8mb4")
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, params.Encode())
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvList(key string, def []string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		out := make([]string, 0, len(def))
		for _, d := range def {
			d = strings.TrimSpace(d)
			if d != "" {
				out = append(out, d)
			}
		}
		return out
	}

	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
