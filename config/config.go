package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DataPath            string
	HTTPAddr            string
	HighVolumeThreshold int
	DefaultType1        string
	DefaultType2        string
	PriceBins           int
	TablePreviewRows    int

	ChartWidth  int
	ChartHeight int
	OutputDir   string

	MaxConcurrency int
	MaxRetries     int
	LogLevel       string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ChromeBin string
}

// Load reads the .env file (if any) and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	return &Config{
		DataPath:            getEnv("DATA_PATH", "./vehicles_us.csv"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8501"),
		HighVolumeThreshold: getEnvInt("HIGH_VOLUME_THRESHOLD", 1000),
		DefaultType1:        getEnv("DEFAULT_TYPE_1", "SUV"),
		DefaultType2:        getEnv("DEFAULT_TYPE_2", "truck"),
		PriceBins:           getEnvInt("PRICE_BINS", 30),
		TablePreviewRows:    getEnvInt("TABLE_PREVIEW_ROWS", 50),

		ChartWidth:  getEnvInt("CHART_WIDTH", 1024),
		ChartHeight: getEnvInt("CHART_HEIGHT", 512),
		OutputDir:   getEnv("OUTPUT_DIR", "./output"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "dashboard"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "dashboard"),
		PostgresDB:       getEnv("POSTGRES_DB", "vehicles_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ChromeBin: getEnv("CHROME_BIN", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
		log.Printf("[config] Invalid integer for %s=%q, using %d", key, val, fallback)
	}
	return fallback
}
