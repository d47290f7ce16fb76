package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearDocsyncEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DOCSYNC_REPO_URL",
		"DOCSYNC_REPO_BRANCH",
		"DOCSYNC_LOCAL_REPO_PATH",
		"DOCSYNC_REFRESH_INTERVAL_HOURS",
		"DOCSYNC_INGEST_COMMAND",
		"DOCSYNC_INITIAL_REFRESH",
		"MILVUS_URI",
		"MILVUS_TOKEN",
		"MILVUS_DB",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearDocsyncEnv(t)
	t.Setenv("MILVUS_URI", "http://localhost:19530")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultRepoURL, cfg.RepoURL)
	assert.Equal(t, DefaultRepoBranch, cfg.RepoBranch)
	assert.Equal(t, DefaultLocalRepoPath, cfg.LocalRepoPath)
	assert.Equal(t, "http://localhost:19530", cfg.MilvusURI)
	assert.Empty(t, cfg.MilvusToken)
	assert.Zero(t, cfg.RefreshInterval, "zero interval defers to the scheduler default")
	assert.Empty(t, cfg.IngestCommand)
	assert.True(t, cfg.InitialRefresh)
}

func TestLoad_MissingMilvusURI(t *testing.T) {
	clearDocsyncEnv(t)

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingMilvusURI)
}

func TestLoad_CustomValues(t *testing.T) {
	clearDocsyncEnv(t)
	t.Setenv("MILVUS_URI", "https://milvus.example.com:443")
	t.Setenv("MILVUS_TOKEN", "root:Milvus")
	t.Setenv("MILVUS_DB", "docs")
	t.Setenv("DOCSYNC_REPO_URL", "https://example.com/docs.git")
	t.Setenv("DOCSYNC_REPO_BRANCH", "main")
	t.Setenv("DOCSYNC_LOCAL_REPO_PATH", "/var/lib/docsync/mirror")
	t.Setenv("DOCSYNC_REFRESH_INTERVAL_HOURS", "24")
	t.Setenv("DOCSYNC_INGEST_COMMAND", "python3 process_docs.py")
	t.Setenv("DOCSYNC_INITIAL_REFRESH", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/docs.git", cfg.RepoURL)
	assert.Equal(t, "main", cfg.RepoBranch)
	assert.Equal(t, "/var/lib/docsync/mirror", cfg.LocalRepoPath)
	assert.Equal(t, "https://milvus.example.com:443", cfg.MilvusURI)
	assert.Equal(t, "root:Milvus", cfg.MilvusToken)
	assert.Equal(t, "docs", cfg.MilvusDB)
	assert.Equal(t, 24*time.Hour, cfg.RefreshInterval)
	assert.Equal(t, []string{"python3", "process_docs.py"}, cfg.IngestCommand)
	assert.False(t, cfg.InitialRefresh)
}

func TestLoad_InvalidInterval(t *testing.T) {
	clearDocsyncEnv(t)
	t.Setenv("MILVUS_URI", "http://localhost:19530")
	t.Setenv("DOCSYNC_REFRESH_INTERVAL_HOURS", "weekly")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidBoolFallsBackToDefault(t *testing.T) {
	clearDocsyncEnv(t)
	t.Setenv("MILVUS_URI", "http://localhost:19530")
	t.Setenv("DOCSYNC_INITIAL_REFRESH", "definitely")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.InitialRefresh)
}
