package vectorstore

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
)

// CommandIngestor implements Ingestor by invoking an external
// ingestion tool as a subprocess. The tool owns parsing, chunking and
// embedding; this side only launches it and forwards its output to the
// logger.
type CommandIngestor struct {
	command []string
	log     *logrus.Entry
}

// NewCommandIngestor creates an ingestor that runs the given command
// (program plus leading arguments) once per subset.
func NewCommandIngestor(command []string, log *logrus.Entry) (*CommandIngestor, error) {
	if len(command) == 0 {
		return nil, ErrNoCommand
	}
	return &CommandIngestor{
		command: slices.Clone(command),
		log:     log.WithField("component", "ingest"),
	}, nil
}

// Ingest runs the ingestion tool for one subset, streaming its
// combined stdout/stderr to the logger line by line.
func (c *CommandIngestor) Ingest(ctx context.Context, req IngestRequest) error {
	if req.SourcePath == "" {
		return ErrNoSourcePath
	}

	args := append(slices.Clone(c.command[1:]),
		"--base-dir", req.SourcePath,
		"--collection", req.Collection,
		"--output-csv", req.ArtifactFile,
		"--milvus-uri", req.Connection.URI,
		"--milvus-token", req.Connection.Token,
	)

	cmd := exec.CommandContext(ctx, c.command[0], args...)

	// Merge stderr into stdout so the tool's progress and errors land
	// in one ordered log stream.
	pr, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("output pipe: %w", err)
	}
	defer pr.Close()
	cmd.Stdout = pw
	cmd.Stderr = pw

	c.log.Infof("$ %s %s", c.command[0], strings.Join(args, " "))

	if err := cmd.Start(); err != nil {
		pw.Close()
		return fmt.Errorf("start ingest command: %w", err)
	}
	// The child holds its own copy of the write end; close ours so the
	// scanner sees EOF when the child exits.
	pw.Close()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		c.log.Info(scanner.Text())
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ingest %s: %w", req.Collection, err)
	}
	return nil
}
