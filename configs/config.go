package configs

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	Mode            string
	DataDir         string
	UserDBFile      string
	DefaultQbankDB  string
	JWTSecret       string
	RabbitURL       string
	EventExchange   string
	RegistryRefresh time.Duration
	AdminEmail      string
	AdminPassword   string
	BackupDir       string
}

var AppConfig *Config

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	refreshSeconds, err := strconv.Atoi(getEnvOrDefault("REGISTRY_REFRESH_SECONDS", "60"))
	if err != nil || refreshSeconds <= 0 {
		refreshSeconds = 60
	}

	AppConfig = &Config{
		ServerPort:      getEnvOrDefault("SERVER_PORT", "8080"),
		Mode:            getEnvOrDefault("APP_MODE", "development"),
		DataDir:         getEnvOrDefault("DATA_DIR", "."),
		UserDBFile:      getEnvOrDefault("USER_DB_FILE", "admin_users.db"),
		DefaultQbankDB:  getEnvOrDefault("DEFAULT_QBANK_DB", "1st_year.db"),
		JWTSecret:       getEnvOrDefault("JWT_SECRET", "default-secret-key"),
		RabbitURL:       os.Getenv("RABBITMQ_URI"),
		EventExchange:   os.Getenv("RABBITMQ_EXCHANGE"),
		RegistryRefresh: time.Duration(refreshSeconds) * time.Second,
		AdminEmail:      os.Getenv("ADMIN_EMAIL"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
		BackupDir:       getEnvOrDefault("BACKUP_DIR", "backups"),
	}

	return AppConfig
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
