package inference

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/yt605155624/Parakeet/pkg/storage"
	"github.com/yt605155624/Parakeet/pkg/voiceprint"
)

// DefaultPattern selects the files embedded when a Job leaves Pattern
// empty.
const DefaultPattern = "*.wav"

// Job names the input tree and the output location of one run.
type Job struct {
	InputDir string
	Pattern  string

	// OutputDir is a local directory or an "s3://bucket/prefix" URI.
	OutputDir string
}

// Summary reports a finished run.
type Summary struct {
	RunID   string
	Total   int
	Written int
	Elapsed time.Duration
}

// Runner embeds every file of a Job.
type Runner struct {
	Preprocessor *voiceprint.Preprocessor
	Encoder      voiceprint.Encoder

	// Store overrides the output store opened from Job.OutputDir.
	Store storage.FileStore

	// Index, when set, receives one record per utterance.
	Index *Index

	// Progress, when set, receives a progress bar.
	Progress io.Writer

	Logger *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Run processes the files of job in order and stops at the first error,
// which names the offending file. Cancellation of ctx is observed between
// files.
func (r *Runner) Run(ctx context.Context, job Job) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	start := time.Now()
	log := r.logger().With("run_id", sum.RunID)

	pattern := job.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	files, err := Discover(job.InputDir, pattern)
	if err != nil {
		return sum, err
	}
	sum.Total = len(files)
	log.Info(fmt.Sprintf("%d utterances in total", len(files)))

	store := r.Store
	if store == nil {
		if store, err = storage.Open(ctx, job.OutputDir); err != nil {
			return sum, fmt.Errorf("inference: output: %w", err)
		}
	}

	var bar *progressbar.ProgressBar
	if r.Progress != nil && len(files) > 0 {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(r.Progress),
			progressbar.OptionSetDescription("embedding"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("utt"),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(r.Progress) }),
		)
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			sum.Elapsed = time.Since(start)
			return sum, fmt.Errorf("inference: stopped after %d of %d: %w", sum.Written, sum.Total, err)
		}
		if err := r.embedOne(ctx, log, store, job.InputDir, file, sum.RunID); err != nil {
			sum.Elapsed = time.Since(start)
			return sum, err
		}
		sum.Written++
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}

	sum.Elapsed = time.Since(start)
	log.Info("done", "written", sum.Written, "output", store.URI(), "elapsed", sum.Elapsed.Round(time.Millisecond))
	return sum, nil
}

func (r *Runner) embedOne(ctx context.Context, log *slog.Logger, store storage.FileStore, root, file, runID string) error {
	out, err := OutputPath(root, file)
	if err != nil {
		return err
	}
	u, err := voiceprint.Embed(r.Preprocessor, r.Encoder, file)
	if err != nil {
		return fmt.Errorf("inference: %w", err)
	}
	if err := SaveEmbedding(ctx, store, out, u.Embedding); err != nil {
		return fmt.Errorf("inference: write %s for %s: %w", out, file, err)
	}
	log.Debug("embedded", "path", file, "output", out, "partials", u.Partials, "dim", len(u.Embedding))

	if r.Index == nil {
		return nil
	}
	rel, _ := filepath.Rel(root, file)
	rec := Record{
		Input:      filepath.ToSlash(rel),
		Output:     out,
		Dim:        len(u.Embedding),
		Partials:   u.Partials,
		Samples:    u.Samples,
		SampleRate: u.SampleRate,
		RunID:      runID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.Index.Put(ctx, rec, u.Embedding); err != nil {
		return err
	}
	return nil
}
