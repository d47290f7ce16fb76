// Package gitrepo maintains a local mirror of the remote documentation
// repository by shelling out to the git command-line tool.
package gitrepo

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultBranch is the branch mirrored when none is configured.
const DefaultBranch = "master"

// DocsPaths holds the resolved locations of the documentation subsets
// inside the mirror. An empty field means the subset could not be
// resolved (e.g. no version directory matched).
type DocsPaths struct {
	UserGuide        string
	ORMAPI           string
	ClientAPI        string
	MultiLanguageAPI string
}

// all returns the subset paths in a fixed order.
func (p DocsPaths) all() []string {
	return []string{p.UserGuide, p.ORMAPI, p.ClientAPI, p.MultiLanguageAPI}
}

// Manager owns one local mirror of a remote repository. Every
// operation logs its own failures and reports a boolean outcome rather
// than propagating an error: the manager degrades to "not ready"
// instead of crashing its caller.
type Manager struct {
	remoteURL string
	localPath string
	branch    string
	gitPath   string

	mu           sync.Mutex
	lastRevision string

	log *logrus.Entry
}

// NewManager creates a mirror manager for the given remote URL and
// local path. An empty branch selects DefaultBranch.
func NewManager(remoteURL, localPath, branch string, log *logrus.Entry) *Manager {
	if branch == "" {
		branch = DefaultBranch
	}
	return &Manager{
		remoteURL: remoteURL,
		localPath: localPath,
		branch:    branch,
		gitPath:   "git",
		log:       log.WithField("component", "gitrepo"),
	}
}

// LocalPath returns the mirror's directory.
func (m *Manager) LocalPath() string {
	return m.localPath
}

// LastRevision returns the revision recorded after the most recent
// successful clone or pull, or "" if none succeeded yet.
func (m *Manager) LastRevision() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRevision
}

// EnsureExists makes sure a valid mirror is present locally, cloning
// if necessary. A directory without git metadata is treated as corrupt
// state: it is removed and cloned again.
func (m *Manager) EnsureExists(ctx context.Context) bool {
	if _, err := os.Stat(m.localPath); err != nil {
		m.log.WithField("path", m.localPath).Info("Repository not found, cloning")
		return m.Clone(ctx)
	}

	if _, err := os.Stat(filepath.Join(m.localPath, ".git")); err != nil {
		m.log.Warn("Directory exists but is not a git repository, removing and cloning")
		if err := os.RemoveAll(m.localPath); err != nil {
			m.log.WithError(err).Error("Failed to remove corrupt repository directory")
			return false
		}
		return m.Clone(ctx)
	}

	m.log.WithField("path", m.localPath).Info("Repository already exists")
	return true
}

// Clone clones the configured branch into the local path, streaming
// git's progress output, and records the checked-out revision.
func (m *Manager) Clone(ctx context.Context) bool {
	if err := os.MkdirAll(filepath.Dir(m.localPath), 0o755); err != nil {
		m.log.WithError(err).Error("Failed to create mirror parent directory")
		return false
	}

	err := runStreamed(ctx, m.log, "", m.gitPath,
		"clone", "--progress", "-b", m.branch, m.remoteURL, m.localPath)
	if err != nil {
		m.log.WithError(err).Error("Failed to clone repository")
		return false
	}

	m.log.WithField("path", m.localPath).Info("Successfully cloned repository")
	m.updateLastRevision(ctx)
	return true
}

// CheckForUpdates fetches the remote branch and reports whether its
// tip differs from the local checkout. Any resolution failure reports
// false: no information implies no known update.
func (m *Manager) CheckForUpdates(ctx context.Context) bool {
	if !m.EnsureExists(ctx) {
		return false
	}

	err := runStreamed(ctx, m.log, m.localPath, m.gitPath,
		"fetch", "--progress", "origin", m.branch)
	if err != nil {
		m.log.WithError(err).Error("Failed to fetch updates")
		return false
	}

	remote, err := m.revParse(ctx, "origin/"+m.branch)
	if err != nil {
		m.log.WithError(err).Error("Failed to resolve remote revision")
		return false
	}
	current, err := m.revParse(ctx, "HEAD")
	if err != nil {
		m.log.WithError(err).Error("Failed to resolve current revision")
		return false
	}

	if remote != "" && current != "" && remote != current {
		m.log.Infof("Updates available: %s -> %s", shortRev(current), shortRev(remote))
		return true
	}

	m.log.Info("No updates available")
	return false
}

// PullUpdates hard-resets the mirror to the remote branch tip and
// fast-forwards it. Local modifications are discarded; the mirror is
// never edited locally, so nothing of value can be lost.
func (m *Manager) PullUpdates(ctx context.Context) bool {
	if !m.EnsureExists(ctx) {
		return false
	}

	err := runStreamed(ctx, m.log, m.localPath, m.gitPath,
		"reset", "--hard", "origin/"+m.branch)
	if err != nil {
		m.log.WithError(err).Error("Failed to reset repository")
		return false
	}

	err = runStreamed(ctx, m.log, m.localPath, m.gitPath,
		"pull", "--progress", "origin", m.branch)
	if err != nil {
		m.log.WithError(err).Error("Failed to pull updates")
		return false
	}

	m.log.Info("Successfully pulled latest updates")
	m.updateLastRevision(ctx)
	return true
}

// DocsPaths resolves the documentation subset directories from the
// versioned layout of the mirror, preferring the latest version
// directory for each versioned tree.
func (m *Manager) DocsPaths() DocsPaths {
	var paths DocsPaths

	if latest := LatestVersionDir(m.localPath); latest != "" {
		paths.UserGuide = filepath.Join(latest, "site", "en", "userGuide")
	}

	pymilvusBase := filepath.Join(m.localPath, "API_Reference", "pymilvus")
	if latest := LatestVersionDir(pymilvusBase); latest != "" {
		paths.ORMAPI = filepath.Join(latest, "ORM")
		paths.ClientAPI = filepath.Join(latest, "MilvusClient")
	}

	paths.MultiLanguageAPI = filepath.Join(m.localPath, "API_Reference")
	return paths
}

// IsReady reports whether the mirror is usable: the directory exists,
// carries git metadata, and at least one documentation subset resolves
// to an existing directory.
func (m *Manager) IsReady() bool {
	if _, err := os.Stat(m.localPath); err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(m.localPath, ".git")); err != nil {
		return false
	}
	for _, p := range m.DocsPaths().all() {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// revParse resolves a ref to a revision id within the mirror.
func (m *Manager) revParse(ctx context.Context, ref string) (string, error) {
	cmd := exec.CommandContext(ctx, m.gitPath, "rev-parse", ref)
	cmd.Dir = m.localPath
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("rev-parse %s: %w", ref, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (m *Manager) updateLastRevision(ctx context.Context) {
	rev, err := m.revParse(ctx, "HEAD")
	if err != nil {
		m.log.WithError(err).Error("Failed to record current revision")
		return
	}
	m.mu.Lock()
	m.lastRevision = rev
	m.mu.Unlock()
}

func shortRev(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
