package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	ServerPort string

	// Каталог для загруженных файлов (вложения заданий и сдачи работ).
	UploadDir string
	// За сколько дней до срока сдачи рассылать напоминания.
	DueSoonDays int
	// Расписание рассылки напоминаний в формате cron.
	ReminderCron string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "postgres"),
		DBPassword:   getEnv("DB_PASSWORD", "postgres"),
		DBName:       getEnv("DB_NAME", "rainforest"),
		JWTSecret:    getEnv("JWT_SECRET", "secret"),
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
		DueSoonDays:  getEnvInt("DUE_SOON_DAYS", 3),
		ReminderCron: getEnv("REMINDER_CRON", "0 8 * * *"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
