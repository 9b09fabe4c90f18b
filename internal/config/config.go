package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	LogLevel                  string
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	Storage                   StorageConfig
	Database                  DatabaseConfig
	Data                      DataConfig
	Sessions                  SessionConfig
	Credentials               CredentialConfig
	RecommendTopN             int
}

// StorageConfig selects the appointment/history record store.
type StorageConfig struct {
	Driver           string // "csv", "mysql" or "postgres"
	AppointmentsPath string
	HistoryPath      string
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// DataConfig points at the static data files loaded on startup.
type DataConfig struct {
	DoctorsPath   string
	IntentsPath   string
	FollowUpsPath string
}

// SessionConfig holds conversation session storage settings
type SessionConfig struct {
	Backend       string // "memory" or "redis"
	RedisAddr     string
	RedisPassword string
	TTL           time.Duration
}

// CredentialConfig holds the seeded demo credentials.
type CredentialConfig struct {
	AdminPassword   string
	PatientPassword string
	DoctorPassword  string
	BcryptCost      int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	storage := StorageConfig{
		Driver:           strings.ToLower(strings.TrimSpace(getEnv("STORE_DRIVER", "csv"))),
		AppointmentsPath: getEnv("APPOINTMENTS_CSV", "data/appointments.csv"),
		HistoryPath:      getEnv("HISTORY_CSV", "data/history.csv"),
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "medbot"),
	}

	switch storage.Driver {
	case "csv":
	case "mysql":
		dbConfig.Port = getEnv("DB_PORT", "3306")
		dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)
	case "postgres":
		dbConfig.Port = getEnv("DB_PORT", "5432")
		dbConfig.DSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			dbConfig.Host, dbConfig.Username, dbConfig.Password, dbConfig.Name, dbConfig.Port)
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want csv, mysql or postgres", storage.Driver)
	}

	data := DataConfig{
		DoctorsPath:   getEnv("DOCTORS_JSON", "data/doctors.json"),
		IntentsPath:   getEnv("INTENTS_JSON", "data/intents.json"),
		FollowUpsPath: getEnv("FOLLOW_UPS_JSON", "data/follow_up_questions.json"),
	}

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	sessions := SessionConfig{
		Backend:       strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", "memory"))),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		TTL:           sessionTTL,
	}
	if sessions.Backend != "memory" && sessions.Backend != "redis" {
		return nil, fmt.Errorf("invalid SESSION_BACKEND %q: want memory or redis", sessions.Backend)
	}

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	jwtRefreshExpHours, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRATION_HOURS: %w", err)
	}

	bcryptCost, err := strconv.Atoi(getEnv("BCRYPT_COST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	topN, err := strconv.Atoi(getEnv("RECOMMEND_TOP_N", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECOMMEND_TOP_N: %w", err)
	}
	if topN < 1 {
		return nil, fmt.Errorf("invalid RECOMMEND_TOP_N: must be at least 1, got %d", topN)
	}

	return &Config{
		Port:                      getEnv("PORT", "3001"),
		Origin:                    getEnv("ORIGIN", "http://localhost:4200"),
		Environment:               getEnv("APP_ENV", "development"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		Storage:                   storage,
		Database:                  dbConfig,
		Data:                      data,
		Sessions:                  sessions,
		Credentials: CredentialConfig{
			AdminPassword:   getEnv("ADMIN_PASSWORD", "admin_pass"),
			PatientPassword: getEnv("PATIENT_DEMO_PASSWORD", "patient_pass"),
			DoctorPassword:  getEnv("DOCTOR_PASSWORD", "doctor_pass"),
			BcryptCost:      bcryptCost,
		},
		RecommendTopN: topN,
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
