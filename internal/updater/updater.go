// Package updater orchestrates one full documentation refresh: purge
// stale artifacts, re-clone the mirror, reset the vector-database
// collections, and re-ingest every documentation subset.
package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zilliztech/milvus-docsync/internal/gitrepo"
	"github.com/zilliztech/milvus-docsync/internal/retry"
	"github.com/zilliztech/milvus-docsync/internal/vectorstore"
)

// Common errors
var (
	ErrRefreshInFlight = errors.New("a refresh is already running")
	ErrCloneFailed     = errors.New("mirror clone failed")
	ErrNilDependency   = errors.New("updater requires repo, connect and ingestor")
)

// Subset maps one documentation category to its target collection, its
// intermediate artifact file, and the resolver that locates its source
// directory inside the mirror.
type Subset struct {
	Name         string
	Collection   string
	ArtifactFile string
	Path         func(gitrepo.DocsPaths) string
}

// Subsets returns the static table of managed documentation subsets.
func Subsets() []Subset {
	return []Subset{
		{
			Name:         "user_guide",
			Collection:   "pymilvus_user_guide",
			ArtifactFile: "userGuide_embeddings.csv",
			Path:         func(p gitrepo.DocsPaths) string { return p.UserGuide },
		},
		{
			Name:         "orm_api",
			Collection:   "mcp_orm",
			ArtifactFile: "ORM_embeddings.csv",
			Path:         func(p gitrepo.DocsPaths) string { return p.ORMAPI },
		},
		{
			Name:         "client_api",
			Collection:   "mcp_milvus_client",
			ArtifactFile: "MilvusClient_embeddings.csv",
			Path:         func(p gitrepo.DocsPaths) string { return p.ClientAPI },
		},
		{
			Name:         "multi_lang_api",
			Collection:   "mcp_multi_language_docs",
			ArtifactFile: "multi_language_docs_with_embedding.csv",
			Path:         func(p gitrepo.DocsPaths) string { return p.MultiLanguageAPI },
		},
	}
}

// Collections returns the managed collection names in refresh order.
func Collections() []string {
	subsets := Subsets()
	names := make([]string, 0, len(subsets))
	for _, s := range subsets {
		names = append(names, s.Collection)
	}
	return names
}

// ArtifactFiles returns every intermediate file purged before a
// refresh. embeddings_temp.csv is a scratch file of the ingestion tool
// and has no owning subset.
func ArtifactFiles() []string {
	names := []string{"embeddings_temp.csv"}
	for _, s := range Subsets() {
		names = append(names, s.ArtifactFile)
	}
	return names
}

// RepoSyncer is the slice of the mirror manager the pipeline drives.
type RepoSyncer interface {
	Clone(ctx context.Context) bool
	DocsPaths() gitrepo.DocsPaths
	LastRevision() string
	LocalPath() string
}

// Options configures an Updater.
type Options struct {
	Repo     RepoSyncer
	Connect  vectorstore.ConnectFunc
	Ingestor vectorstore.Ingestor

	// WorkDir is where artifact files accumulate; empty means the
	// process working directory.
	WorkDir string

	// Retry and Policy govern calls to the external collaborators.
	// Zero values select the API presets.
	Retry  retry.Config
	Policy retry.Policy

	Log *logrus.Entry
}

// SubsetOutcome records what happened to one subset during a refresh.
type SubsetOutcome struct {
	Name    string
	Skipped bool // source directory missing, ingestion never attempted
	Err     error
}

// Report summarizes one refresh pass. It is transient: nothing here is
// persisted across runs.
type Report struct {
	Start    time.Time
	Elapsed  time.Duration
	Revision string
	Subsets  []SubsetOutcome
}

// Failed returns the number of subsets whose ingestion failed.
func (r *Report) Failed() int {
	n := 0
	for _, s := range r.Subsets {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Updater runs the refresh pipeline. At most one refresh is in flight
// at a time; concurrent triggers get ErrRefreshInFlight.
type Updater struct {
	repo     RepoSyncer
	connect  vectorstore.ConnectFunc
	ingestor vectorstore.Ingestor
	workDir  string
	retryCfg retry.Config
	policy   retry.Policy
	log      *logrus.Entry

	mu sync.Mutex
}

// New creates an Updater from options.
func New(opts Options) (*Updater, error) {
	if opts.Repo == nil || opts.Connect == nil || opts.Ingestor == nil {
		return nil, ErrNilDependency
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Retry == (retry.Config{}) {
		opts.Retry = retry.APIConfig()
	}
	if len(opts.Policy.Retryable) == 0 && len(opts.Policy.NonRetryable) == 0 {
		opts.Policy = retry.APIPolicy()
	}
	return &Updater{
		repo:     opts.Repo,
		connect:  opts.Connect,
		ingestor: opts.Ingestor,
		workDir:  opts.WorkDir,
		retryCfg: opts.Retry,
		policy:   opts.Policy,
		log:      opts.Log.WithField("component", "updater"),
	}, nil
}

// Refresh runs the full pipeline. A clone failure aborts the run
// before any collection is mutated; collection-drop failures, missing
// subset directories and per-subset ingestion failures are logged and
// the run continues. The returned Report carries per-subset outcomes
// for callers that want more than the logs.
func (u *Updater) Refresh(ctx context.Context, params vectorstore.ConnectionParams) (*Report, error) {
	if !u.mu.TryLock() {
		return nil, ErrRefreshInFlight
	}
	defer u.mu.Unlock()

	start := time.Now()
	u.log.Info("Starting full documentation refresh")

	u.purgeArtifacts()

	// A full refresh always starts from a clean checkout: stale files
	// never accumulate and a previously interrupted clone cannot leak
	// into this run.
	if err := os.RemoveAll(u.repo.LocalPath()); err != nil {
		return nil, fmt.Errorf("remove mirror directory: %w", err)
	}

	if !u.repo.Clone(ctx) {
		return nil, ErrCloneFailed
	}

	store, err := u.connect(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("connect vector store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			u.log.WithError(cerr).Warn("Failed to close vector store connection")
		}
	}()

	u.dropCollections(ctx, store)

	report := &Report{Start: start, Revision: u.repo.LastRevision()}
	paths := u.repo.DocsPaths()

	for _, subset := range Subsets() {
		report.Subsets = append(report.Subsets, u.ingestSubset(ctx, subset, paths, params))
	}

	report.Elapsed = time.Since(start)
	u.log.WithFields(logrus.Fields{
		"elapsed":  report.Elapsed.Round(100 * time.Millisecond).String(),
		"failed":   report.Failed(),
		"revision": report.Revision,
	}).Info("Documentation refresh completed")
	return report, nil
}

// dropCollections drops every managed collection that exists. A drop
// failure is logged and the remaining collections are still attempted:
// a stale collection is preferable to blocking cleanup on a transient
// backend hiccup.
func (u *Updater) dropCollections(ctx context.Context, store vectorstore.CollectionManager) {
	for _, name := range Collections() {
		log := u.log.WithField("collection", name)

		exists, err := retry.DoValue(ctx, u.retryCfg, u.policy, u.log, "has_collection",
			func(ctx context.Context) (bool, error) {
				return store.HasCollection(ctx, name)
			})
		if err != nil {
			log.WithError(err).Warn("Failed to check collection existence")
			continue
		}
		if !exists {
			log.Info("Collection does not exist, skip drop")
			continue
		}

		log.Info("Dropping existing collection")
		err = retry.Do(ctx, u.retryCfg, u.policy, u.log, "drop_collection",
			func(ctx context.Context) error {
				return store.DropCollection(ctx, name)
			})
		if err != nil {
			log.WithError(err).Warn("Failed to drop collection")
		}
	}
}

// ingestSubset runs ingestion for one subset. A missing source
// directory skips the subset; an ingestion failure is recorded but
// never blocks the other subsets.
func (u *Updater) ingestSubset(ctx context.Context, subset Subset, paths gitrepo.DocsPaths, params vectorstore.ConnectionParams) SubsetOutcome {
	outcome := SubsetOutcome{Name: subset.Name}
	log := u.log.WithField("subset", subset.Name)

	path := subset.Path(paths)
	if path == "" {
		log.Warn("Subset directory could not be resolved, skipping")
		outcome.Skipped = true
		return outcome
	}
	if _, err := os.Stat(path); err != nil {
		log.WithField("path", path).Warn("Subset directory not found, skipping")
		outcome.Skipped = true
		return outcome
	}

	log.WithField("path", path).Info("Processing subset documents")
	req := vectorstore.IngestRequest{
		SourcePath:   path,
		Collection:   subset.Collection,
		ArtifactFile: u.artifactPath(subset.ArtifactFile),
		Connection:   params,
	}
	err := retry.Do(ctx, u.retryCfg, u.policy, u.log, "ingest_"+subset.Name,
		func(ctx context.Context) error {
			return u.ingestor.Ingest(ctx, req)
		})
	if err != nil {
		log.WithError(err).Error("Subset ingestion failed")
		outcome.Err = err
	}
	return outcome
}

// purgeArtifacts removes leftover artifact files from previous runs.
// Missing files are not errors.
func (u *Updater) purgeArtifacts() {
	for _, name := range ArtifactFiles() {
		path := u.artifactPath(name)
		err := os.Remove(path)
		switch {
		case err == nil:
			u.log.WithField("file", path).Info("Removed stale artifact file")
		case os.IsNotExist(err):
			u.log.WithField("file", path).Debug("Artifact file does not exist, skip")
		default:
			u.log.WithError(err).WithField("file", path).Warn("Failed to remove artifact file")
		}
	}
}

func (u *Updater) artifactPath(name string) string {
	if u.workDir == "" {
		return name
	}
	return filepath.Join(u.workDir, name)
}
