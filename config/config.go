package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ServerAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// 对象存储配置
	StorageDriver    string // minio or s3
	StorageEndpoint  string
	StorageRegion    string
	StorageBucket    string
	StorageAccessKey string
	StorageSecretKey string
	StorageUseSSL    bool
	StorageBaseURL   string // Prefix stored in front of every media key, e.g. https://bucket.s3.amazonaws.com/

	// 媒体目录，与 StorageBaseURL 拼接得到 base path
	MusicTrackDir        string
	ImagesTrackDir       string
	ImagesSetDir         string
	ImagesUserProfileDir string
	ImagesUserHeaderDir  string

	ResolveMaxAttempts int
	PresignCacheTTL    time.Duration

	JWTSecret string
	JWTExpiry time.Duration

	// 日志配置
	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// withTrailingSlash 确保目录前缀以 "/" 结尾，文件名可直接拼接
func withTrailingSlash(dir string) string {
	if dir == "" || strings.HasSuffix(dir, "/") {
		return dir
	}
	return dir + "/"
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // For password, better not to have a hardcoded default
		DBName:     getEnv("DB_NAME", "soundhub"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", "minio")),
		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", "127.0.0.1:9000"),
		StorageRegion:    getEnv("STORAGE_REGION", "ap-northeast-2"),
		StorageBucket:    getEnv("STORAGE_BUCKET", "soundhub"),
		StorageAccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey: os.Getenv("STORAGE_SECRET_KEY"),
		StorageUseSSL:    getEnvBool("STORAGE_USE_SSL", false),
		StorageBaseURL:   withTrailingSlash(getEnv("STORAGE_BASE_URL", "http://127.0.0.1:9000/soundhub/")),

		MusicTrackDir:        withTrailingSlash(getEnv("S3_MUSIC_TRACK_DIR", "music/tracks")),
		ImagesTrackDir:       withTrailingSlash(getEnv("S3_IMAGES_TRACK_DIR", "images/tracks")),
		ImagesSetDir:         withTrailingSlash(getEnv("S3_IMAGES_SET_DIR", "images/sets")),
		ImagesUserProfileDir: withTrailingSlash(getEnv("S3_IMAGES_USER_PROFILE_DIR", "images/users/profile")),
		ImagesUserHeaderDir:  withTrailingSlash(getEnv("S3_IMAGES_USER_HEADER_DIR", "images/users/header")),

		ResolveMaxAttempts: getEnvInt("MEDIA_RESOLVE_MAX_ATTEMPTS", 5000),
		PresignCacheTTL:    getEnvDuration("PRESIGN_CACHE_TTL", 4*time.Minute),

		JWTSecret: getEnv("JWT_SECRET", "soundhub-dev-secret"),
		JWTExpiry: getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 7),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE", 30),
	}

	return cfg
}
