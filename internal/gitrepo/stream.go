package gitrepo

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// streamChunkSize is the raw read size for subprocess output. Progress
// indicators arrive as carriage-return rewrites, so reads must not be
// line-buffered.
const streamChunkSize = 1024

var percentRe = regexp.MustCompile(`(\d{1,3})%`)

// progressTracker throttles noisy progress output to one log line per
// percentage increment. A drop back to 0% marks the start of a new
// phase (e.g. "Receiving objects" finishing and "Resolving deltas"
// starting) and resets the tracker so the new phase reports from its
// own 0%; any other decrease is out-of-order noise and is suppressed.
type progressTracker struct {
	log         *logrus.Entry
	lastPercent int
}

func newProgressTracker(log *logrus.Entry) *progressTracker {
	return &progressTracker{log: log, lastPercent: -1}
}

func (t *progressTracker) handleLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if m := percentRe.FindStringSubmatch(line); m != nil {
		percent, err := strconv.Atoi(m[1])
		if err == nil {
			switch {
			case percent > t.lastPercent:
				t.lastPercent = percent
				t.log.Info(line)
			case percent == 0 && t.lastPercent > 0:
				t.lastPercent = 0
				t.log.Info(line)
			}
			return
		}
	}

	t.log.Info(line)
}

// streamLines reads r in raw chunks, drops undecodable bytes,
// normalizes carriage returns to newlines, and hands each complete
// logical line to handle. A partial line is buffered until its
// terminator arrives, so no line is processed twice.
func streamLines(r io.Reader, handle func(string)) {
	var pending string
	buf := make([]byte, streamChunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := strings.ToValidUTF8(string(buf[:n]), "")
			pending += strings.ReplaceAll(chunk, "\r", "\n")

			lines := strings.Split(pending, "\n")
			pending = lines[len(lines)-1]
			for _, line := range lines[:len(lines)-1] {
				handle(line)
			}
		}
		if err != nil {
			break
		}
	}

	if pending != "" {
		handle(pending)
	}
}

// runStreamed executes a command, streaming stdout and stderr through
// independent progress trackers. Both streams are consumed concurrently
// so neither pipe's buffering can stall the other, and both drains
// complete before the process wait — otherwise output could be
// truncated.
func runStreamed(ctx context.Context, log *logrus.Entry, dir string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	log.WithField("cmd", name+" "+strings.Join(args, " ")).Debug("Running command")

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		streamLines(stdout, newProgressTracker(log).handleLine)
		return nil
	})
	g.Go(func() error {
		streamLines(stderr, newProgressTracker(log).handleLine)
		return nil
	})
	_ = g.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s %s: %w", name, args[0], err)
	}
	return nil
}
