package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr   string
	SiteRoot     string
	AdminEnabled bool
	// SecureCookies marks the session cookie Secure; enable behind TLS.
	SecureCookies bool

	DBBackend string
	DBPath    string
	MongoURI  string
	MongoDB   string

	BlobBackend    string
	BlobLocalPath  string
	BlobBaseURL    string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MinIOPublicURL string

	JWTSecret     string
	SessionTTL    time.Duration
	AdminEmail    string
	AdminPassword string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSURL       string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	EnquiryTo    string

	CatalogLimit        int
	CatalogCacheTTL     time.Duration
	WhatsAppNumber      string
	MaxImageBytes       int64
	OrphanSweepInterval time.Duration

	LogLevel  string
	LogFormat string
	LogFile   string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		ListenAddr:   ":" + getEnv("PORT", "3000"),
		SiteRoot:     getEnv("SITE_ROOT", "./public"),
		AdminEnabled: getBool("ADMIN_ENABLED", true),
		SecureCookies: getBool("SECURE_COOKIES", false),

		DBBackend: getEnv("DB_BACKEND", "sqlite"),
		DBPath:    getEnv("DB_PATH", "/data/propertydesk.db"),
		MongoURI:  getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:   getEnv("MONGO_DB", "propertydesk"),

		BlobBackend:    getEnv("BLOB_BACKEND", "local"),
		BlobLocalPath:  getEnv("BLOB_LOCAL_PATH", "/data/blobs"),
		BlobBaseURL:    getEnv("BLOB_BASE_URL", "/media"),
		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinIOBucket:    getEnv("MINIO_BUCKET", "property-images"),
		MinIOUseSSL:    getBool("MINIO_USE_SSL", false),
		MinIOPublicURL: getEnv("MINIO_PUBLIC_URL", ""),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		SessionTTL:    getDuration("SESSION_TTL", 12*time.Hour),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),
		NATSURL:       getEnv("NATS_URL", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@localhost"),
		EnquiryTo:    getEnv("ENQUIRY_TO", ""),

		CatalogLimit:        getInt("CATALOG_LIMIT", 6),
		CatalogCacheTTL:     getDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		WhatsAppNumber:      getEnv("WHATSAPP_NUMBER", "919999999999"),
		MaxImageBytes:       int64(getInt("MAX_IMAGE_BYTES", 5*1024*1024)),
		OrphanSweepInterval: getDuration("ORPHAN_SWEEP_INTERVAL", time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	b, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultVal)))
	if err != nil {
		slog.Warn("invalid boolean in environment, using default", "key", key, "default", defaultVal)
		return defaultVal
	}
	return b
}

func getInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultVal)))
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "default", defaultVal)
		return defaultVal
	}
	return n
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, defaultVal.String()))
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "default", defaultVal)
		return defaultVal
	}
	return d
}
