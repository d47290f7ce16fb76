package gitrepo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *logrus.Entry {
	logger, _ := logtest.NewNullLogger()
	return logrus.NewEntry(logger)
}

func runGit(t *testing.T, args ...string) {
	t.Helper()
	if out, err := exec.Command("git", args...).CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v: %s", args, err, out)
	}
}

// initRemoteRepo creates a local repository acting as the remote, with
// one commit on the given branch.
func initRemoteRepo(t *testing.T, branch string) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, "init", "-b", branch, dir)
	runGit(t, "-C", dir, "config", "user.email", "test@test.com")
	runGit(t, "-C", dir, "config", "user.name", "Test")
	commitFile(t, dir, "README.md", "hello\n")
	return dir
}

func commitFile(t *testing.T, repoDir, name, content string) {
	t.Helper()
	path := filepath.Join(repoDir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	runGit(t, "-C", repoDir, "add", name)
	runGit(t, "-C", repoDir, "commit", "-m", "add "+name)
}

func TestClone_RecordsRevision(t *testing.T) {
	remote := initRemoteRepo(t, "main")
	local := filepath.Join(t.TempDir(), "mirror")
	m := NewManager(remote, local, "main", testLog())

	require.True(t, m.Clone(context.Background()))

	assert.DirExists(t, filepath.Join(local, ".git"))
	assert.Len(t, m.LastRevision(), 40, "revision should be a full commit hash")
}

func TestClone_FailureReturnsFalse(t *testing.T) {
	local := filepath.Join(t.TempDir(), "mirror")
	m := NewManager(filepath.Join(t.TempDir(), "does-not-exist"), local, "main", testLog())

	assert.False(t, m.Clone(context.Background()))
	assert.Empty(t, m.LastRevision())
}

func TestEnsureExists_ClonesWhenAbsent(t *testing.T) {
	remote := initRemoteRepo(t, "main")
	local := filepath.Join(t.TempDir(), "mirror")
	m := NewManager(remote, local, "main", testLog())

	require.True(t, m.EnsureExists(context.Background()))
	assert.DirExists(t, filepath.Join(local, ".git"))
}

func TestEnsureExists_ValidRepoIsNoOp(t *testing.T) {
	remote := initRemoteRepo(t, "main")
	local := filepath.Join(t.TempDir(), "mirror")
	m := NewManager(remote, local, "main", testLog())
	require.True(t, m.Clone(context.Background()))
	rev := m.LastRevision()

	assert.True(t, m.EnsureExists(context.Background()))
	assert.Equal(t, rev, m.LastRevision())
}

func TestEnsureExists_ReclonesCorruptDirectory(t *testing.T) {
	remote := initRemoteRepo(t, "main")
	local := filepath.Join(t.TempDir(), "mirror")

	// A directory without git metadata is corrupt state left behind by
	// an interrupted clone; it must be replaced, not trusted.
	require.NoError(t, os.MkdirAll(local, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(local, "stale.txt"), []byte("junk"), 0o644))

	m := NewManager(remote, local, "main", testLog())
	require.True(t, m.EnsureExists(context.Background()))

	assert.DirExists(t, filepath.Join(local, ".git"))
	assert.NoFileExists(t, filepath.Join(local, "stale.txt"))
}

func TestCheckForUpdates(t *testing.T) {
	remote := initRemoteRepo(t, "main")
	local := filepath.Join(t.TempDir(), "mirror")
	m := NewManager(remote, local, "main", testLog())
	require.True(t, m.Clone(context.Background()))

	assert.False(t, m.CheckForUpdates(context.Background()), "no remote commits yet")

	commitFile(t, remote, "new.md", "new content\n")
	assert.True(t, m.CheckForUpdates(context.Background()))
}

func TestPullUpdates_FastForwardsAndRecordsRevision(t *testing.T) {
	remote := initRemoteRepo(t, "main")
	local := filepath.Join(t.TempDir(), "mirror")
	m := NewManager(remote, local, "main", testLog())
	require.True(t, m.Clone(context.Background()))
	before := m.LastRevision()

	commitFile(t, remote, "new.md", "new content\n")
	require.True(t, m.PullUpdates(context.Background()))

	assert.NotEqual(t, before, m.LastRevision())
	assert.FileExists(t, filepath.Join(local, "new.md"))
	assert.False(t, m.CheckForUpdates(context.Background()), "mirror is at the remote tip")
}

func TestPullUpdates_DiscardsLocalModifications(t *testing.T) {
	remote := initRemoteRepo(t, "main")
	local := filepath.Join(t.TempDir(), "mirror")
	m := NewManager(remote, local, "main", testLog())
	require.True(t, m.Clone(context.Background()))

	// The mirror is never locally edited, so a hard reset is safe.
	require.NoError(t, os.WriteFile(filepath.Join(local, "README.md"), []byte("scribble\n"), 0o644))
	require.True(t, m.PullUpdates(context.Background()))

	content, err := os.ReadFile(filepath.Join(local, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))
}

func TestNewManager_DefaultBranch(t *testing.T) {
	m := NewManager("url", "path", "", testLog())
	assert.Equal(t, DefaultBranch, m.branch)
}

func TestDocsPaths_ResolvesLatestVersions(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base,
		"v2.3.x",
		"v2.10.x",
		filepath.Join("API_Reference", "pymilvus", "v2.4.x"),
		filepath.Join("API_Reference", "pymilvus", "v2.5.x"),
	)

	m := NewManager("url", base, "main", testLog())
	paths := m.DocsPaths()

	assert.Equal(t, filepath.Join(base, "v2.10.x", "site", "en", "userGuide"), paths.UserGuide)
	assert.Equal(t, filepath.Join(base, "API_Reference", "pymilvus", "v2.5.x", "ORM"), paths.ORMAPI)
	assert.Equal(t, filepath.Join(base, "API_Reference", "pymilvus", "v2.5.x", "MilvusClient"), paths.ClientAPI)
	assert.Equal(t, filepath.Join(base, "API_Reference"), paths.MultiLanguageAPI)
}

func TestDocsPaths_UnresolvedVersionsLeftEmpty(t *testing.T) {
	base := t.TempDir()
	m := NewManager("url", base, "main", testLog())
	paths := m.DocsPaths()

	assert.Empty(t, paths.UserGuide)
	assert.Empty(t, paths.ORMAPI)
	assert.Empty(t, paths.ClientAPI)
	assert.Equal(t, filepath.Join(base, "API_Reference"), paths.MultiLanguageAPI)
}

func TestIsReady(t *testing.T) {
	remote := initRemoteRepo(t, "main")
	commitFile(t, remote, filepath.Join("v2.1.x", "site", "en", "userGuide", "index.md"), "# guide\n")

	local := filepath.Join(t.TempDir(), "mirror")
	m := NewManager(remote, local, "main", testLog())

	assert.False(t, m.IsReady(), "absent mirror is not ready")

	require.True(t, m.Clone(context.Background()))
	assert.True(t, m.IsReady())
}

func TestIsReady_NoDocsSubsets(t *testing.T) {
	remote := initRemoteRepo(t, "main")
	local := filepath.Join(t.TempDir(), "mirror")
	m := NewManager(remote, local, "main", testLog())
	require.True(t, m.Clone(context.Background()))

	assert.False(t, m.IsReady(), "a mirror without any documentation subset is not ready")
}
