package config

import (
	"os"
	"strconv"
	"time"
)

// Directory backend kinds.
const (
	DirectoryREST    = "rest"
	DirectoryGraphQL = "graphql"
	DirectoryFile    = "file"
)

// Config captures everything the sync service reads from the environment so
// main stays lean.
type Config struct {
	Addr string

	FHIRStoreURL string

	DirectoryKind     string
	DirectoryURL      string
	DirectorySchema   string
	DirectoryUser     string
	DirectoryPass     string
	DirectoryOutDir   string
	DirectoryMock     bool
	DefaultCollection string
	CountryCode       string

	MinDonors       int
	MaxFacts        int
	UpdateStarModel bool

	RetryAttempts int
	RetryInterval time.Duration
	SyncInterval  time.Duration

	PostgresURL string

	RedisAddr   string
	CacheTTL    time.Duration
	MemoryCache bool
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr: envOr("DS_ADDR", ":8080"),

		FHIRStoreURL: envOr("DS_FHIR_STORE_URL", "http://localhost:8091/fhir"),

		DirectoryKind:     envOr("DS_DIRECTORY_KIND", DirectoryREST),
		DirectoryURL:      envOr("DS_DIRECTORY_URL", "https://directory.bbmri-eric.eu"),
		DirectorySchema:   envOr("DS_DIRECTORY_SCHEMA", "ERIC"),
		DirectoryUser:     os.Getenv("DS_DIRECTORY_USER"),
		DirectoryPass:     os.Getenv("DS_DIRECTORY_PASS"),
		DirectoryOutDir:   envOr("DS_DIRECTORY_OUT_DIR", "/tmp/directory-sync"),
		DirectoryMock:     envBool("DS_DIRECTORY_MOCK", false),
		DefaultCollection: os.Getenv("DS_DEFAULT_COLLECTION_ID"),
		CountryCode:       os.Getenv("DS_COUNTRY_CODE"),

		MinDonors:       envInt("DS_MIN_DONORS", 10),
		MaxFacts:        envInt("DS_MAX_FACTS", -1),
		UpdateStarModel: envBool("DS_UPDATE_STAR_MODEL", true),

		RetryAttempts: envInt("DS_RETRY_ATTEMPTS", 5),
		RetryInterval: envDuration("DS_RETRY_INTERVAL", 20*time.Second),
		SyncInterval:  envDuration("DS_SYNC_INTERVAL", 24*time.Hour),

		PostgresURL: os.Getenv("DS_POSTGRES_URL"),

		RedisAddr:   os.Getenv("DS_REDIS_ADDR"),
		CacheTTL:    envDuration("DS_CACHE_TTL", 24*time.Hour),
		MemoryCache: envBool("DS_MEMORY_CACHE", true),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "true" || v == "1"
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
