package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/zilliztech/milvus-docsync/internal/config"
	"github.com/zilliztech/milvus-docsync/internal/gitrepo"
	"github.com/zilliztech/milvus-docsync/internal/scheduler"
	"github.com/zilliztech/milvus-docsync/internal/updater"
	"github.com/zilliztech/milvus-docsync/internal/vectorstore"
)

var version = "dev"

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.NewEntry(logger)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	log.Infof("milvus-docsync %s starting", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := gitrepo.NewManager(cfg.RepoURL, cfg.LocalRepoPath, cfg.RepoBranch, log)

	ingestor, err := vectorstore.NewCommandIngestor(cfg.IngestCommand, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to configure ingestion tool")
	}

	u, err := updater.New(updater.Options{
		Repo:     repo,
		Connect:  vectorstore.Connect,
		Ingestor: ingestor,
		Log:      log,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to build updater")
	}

	params := vectorstore.ConnectionParams{
		URI:    cfg.MilvusURI,
		Token:  cfg.MilvusToken,
		DBName: cfg.MilvusDB,
	}

	refresh := func(ctx context.Context) error {
		_, err := u.Refresh(ctx, params)
		return err
	}

	// The startup refresh completes before the scheduler starts, so
	// the two can never run against the mirror at the same time. The
	// updater's in-flight guard backs this up for any other trigger.
	if cfg.InitialRefresh {
		if err := refresh(ctx); err != nil {
			log.WithError(err).Error("Initial documentation refresh failed")
		}
	}

	scheduler.Start(ctx, cfg.RefreshInterval, refresh, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Infof("Received signal %v, shutting down", sig)
	cancel()
}
