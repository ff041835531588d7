package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// demoUsers are the stock accounts, as name:bcrypt-hash:role entries.
const demoUsers = "admin:$2b$12$yjQ7TDnXJU91kyFa64VH6O1.Ih2n25IUufg56FfG1V1f2PnDMLw0C:admin," +
	"analyst:$2b$12$RXkQTH6cOygQXZzLz3auoOvfyUp2.9zK6xqLKrvXDIA4ytG3IrIDK:analyst," +
	"entrepreneur:$2b$12$bEHyRSLyobRO8zVtjD446.efCTiEHNmE6G6NZdkxwrew1oKCM.buu:entrepreneur"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HTTPAddr    string
	CORSOrigins []string

	StorageDir string
	UploadDir  string

	DBDriver   string
	SQLitePath string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	JWTSecret     string
	JWTTTLMinutes int
	Users         string

	MaxRecords        int
	TopicCount        int
	IngestConcurrency int

	LogLevel  string
	LogFormat string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	storageDir := getEnv("STORAGE_DIR", "./storage")
	return &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":5000"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),

		StorageDir: storageDir,
		UploadDir:  getEnv("UPLOAD_DIR", "./uploads"),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		SQLitePath: getEnv("SQLITE_PATH", filepath.Join(storageDir, "dss.db")),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "dss"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "dss123"),
		PostgresDB:       getEnv("POSTGRES_DB", "dss"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		JWTSecret:     getEnv("JWT_SECRET", "change-me"),
		JWTTTLMinutes: getEnvInt("JWT_TTL_MINUTES", 60),
		Users:         getEnv("USERS", demoUsers),

		MaxRecords:        getEnvInt("MAX_RECORDS", 0),
		TopicCount:        getEnvInt("TOPIC_COUNT", 4),
		IngestConcurrency: getEnvInt("INGEST_CONCURRENCY", 4),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
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

// LatestDataPath is the CSV holding the most recent upload.
func (c *Config) LatestDataPath() string {
	return filepath.Join(c.StorageDir, "last_data.csv")
}

// HistoryPath is the workbook archiving every upload as its own sheet.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.StorageDir, "all_data.xlsx")
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
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
