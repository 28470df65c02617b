package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver    string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	JWTSecret   string
	JWTTTL      int // minutes
	ServerPort  string
	LogMode     string
	CORSOrigins string

	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string
	ScorerTimeout  int // seconds
	ScoreThreshold float64

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	CalendarTokenFile  string
	CalendarTimeZone   string

	NotesBucket    string
	NotesCDNDomain string
	UploadMaxMB    int

	FeedbackTTLDays int
	LoginRateLimit  int
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		DBDriver:    getEnv("DB_DRIVER", "postgres"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "postgres"),
		DBName:      getEnv("DB_NAME", "vidyasetu"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		JWTTTL:      getEnvInt("JWT_TTL_MINUTES", 60),
		ServerPort:  getEnv("SERVER_PORT", "5000"),
		LogMode:     getEnv("LOG_MODE", "dev"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-1.5-pro"),
		GeminiBaseURL:  getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		ScorerTimeout:  getEnvInt("SCORER_TIMEOUT_SECONDS", 30),
		ScoreThreshold: getEnvFloat("SAQ_IMPROVEMENT_THRESHOLD", 5),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", ""),
		CalendarTokenFile:  getEnv("CALENDAR_TOKEN_FILE", "tokens.json"),
		CalendarTimeZone:   getEnv("CALENDAR_TIME_ZONE", "Asia/Kolkata"),

		NotesBucket:    getEnv("NOTES_GCS_BUCKET", ""),
		NotesCDNDomain: getEnv("NOTES_CDN_DOMAIN", ""),
		UploadMaxMB:    getEnvInt("UPLOAD_MAX_MB", 10),

		FeedbackTTLDays: getEnvInt("FEEDBACK_TTL_DAYS", 15),
		LoginRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", 10),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return i
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
