// Package config loads the daemon configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the documentation source.
const (
	DefaultRepoURL       = "https://github.com/milvus-io/web-content.git"
	DefaultRepoBranch    = "master"
	DefaultLocalRepoPath = "./web-content"
)

// ErrMissingMilvusURI is returned when MILVUS_URI is not set.
var ErrMissingMilvusURI = errors.New("MILVUS_URI must be set")

// Config carries everything the sync daemon consumes from outside.
type Config struct {
	RepoURL       string
	RepoBranch    string
	LocalRepoPath string

	MilvusURI   string
	MilvusToken string
	MilvusDB    string

	// RefreshInterval is the scheduler period; zero means the
	// scheduler default (one week).
	RefreshInterval time.Duration

	// IngestCommand is the external ingestion tool plus leading
	// arguments, whitespace separated.
	IngestCommand []string

	// InitialRefresh runs one synchronous refresh at boot before the
	// scheduler starts.
	InitialRefresh bool
}

// Load reads configuration from a .env file (if present) and the
// process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		RepoURL:        getEnv("DOCSYNC_REPO_URL", DefaultRepoURL),
		RepoBranch:     getEnv("DOCSYNC_REPO_BRANCH", DefaultRepoBranch),
		LocalRepoPath:  getEnv("DOCSYNC_LOCAL_REPO_PATH", DefaultLocalRepoPath),
		MilvusURI:      getEnv("MILVUS_URI", ""),
		MilvusToken:    getEnv("MILVUS_TOKEN", ""),
		MilvusDB:       getEnv("MILVUS_DB", ""),
		IngestCommand:  strings.Fields(getEnv("DOCSYNC_INGEST_COMMAND", "")),
		InitialRefresh: getEnvBool("DOCSYNC_INITIAL_REFRESH", true),
	}

	if cfg.MilvusURI == "" {
		return nil, ErrMissingMilvusURI
	}

	hours, err := strconv.Atoi(getEnv("DOCSYNC_REFRESH_INTERVAL_HOURS", "0"))
	if err != nil {
		return nil, err
	}
	cfg.RefreshInterval = time.Duration(hours) * time.Hour

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
