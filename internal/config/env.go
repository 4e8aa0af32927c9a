package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	AwsAccessKey    string
	AwsSecretKey    string
	AwsRegion       string
	BucketName      string
	AIAPIKey        string
	EmbedModel      string
	EmbedDim        int
	GenModel        string
	JWTSecret       string
	Port            string
	QueueName       string
	ListenChannel   string
	ChunkSize       int
	ChunkOverlap    int
	MinChunkRunes   int
	InsertBatchSize int
	MatchThreshold  float64
	MatchCount      int
	WorkerCount     int
	ListenTimeout   time.Duration
	ReconnectDelay  time.Duration
	ReaperInterval  time.Duration
	ReaperDeadline  time.Duration
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		AwsAccessKey:    getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:    getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:       getEnv("AWS_REGION", "us-east-2"),
		BucketName:      getEnv("BUCKET_NAME", "docsage-workspaces"),
		AIAPIKey:        getEnv("GEMINI_API_KEY", ""),
		EmbedModel:      getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:        getEnvInt("EMBED_DIM", 768),
		GenModel:        getEnv("GEN_MODEL", "gemini-1.5-flash"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		Port:            getEnv("PORT", "8080"),
		QueueName:       getEnv("QUEUE_NAME", "documents:process"),
		ListenChannel:   getEnv("LISTEN_CHANNEL", "new_document_channel"),
		ChunkSize:       getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:    getEnvInt("CHUNK_OVERLAP", 200),
		MinChunkRunes:   getEnvInt("MIN_CHUNK_RUNES", 10),
		InsertBatchSize: getEnvInt("INSERT_BATCH_SIZE", 20),
		MatchThreshold:  getEnvFloat("MATCH_THRESHOLD", 0.2),
		MatchCount:      getEnvInt("MATCH_COUNT", 5),
		WorkerCount:     getEnvInt("WORKER_COUNT", 4),
		ListenTimeout:   getEnvDuration("LISTEN_TIMEOUT", 60*time.Second),
		ReconnectDelay:  getEnvDuration("RECONNECT_DELAY", 10*time.Second),
		ReaperInterval:  getEnvDuration("REAPER_INTERVAL", time.Minute),
		ReaperDeadline:  getEnvDuration("REAPER_DEADLINE", 10*time.Minute),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a float, using default %g", key, v, def)
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}
