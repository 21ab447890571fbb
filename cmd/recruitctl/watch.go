package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"recruit-backend/internal/applications"
	"recruit-backend/internal/shared/telemetry"
)

var cvExtensions = []string{".pdf", ".docx"}

const defaultQuietPeriod = 2 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a folder and submit every new CV against a job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("dir", "./inbox", "folder to watch")
	watchCmd.Flags().String("job", "", "job id every CV is submitted against")
	watchCmd.Flags().Duration("quiet", defaultQuietPeriod, "how long a file must stay unchanged before it is submitted")
	_ = watchCmd.MarkFlagRequired("job")

	_ = viper.BindPFlag("watch.dir", watchCmd.Flags().Lookup("dir"))
	_ = viper.BindPFlag("watch.job", watchCmd.Flags().Lookup("job"))
	_ = viper.BindPFlag("watch.quiet", watchCmd.Flags().Lookup("quiet"))
}

func runWatch(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := telemetry.Logger()

	dir := viper.GetString("watch.dir")
	jobID := strings.TrimSpace(viper.GetString("watch.job"))

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.Jobs.Get(ctx, jobID); err != nil {
		return fmt.Errorf("job %s: %w", jobID, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("watching inbox", zap.String("dir", dir), zap.String("job_id", jobID))

	submit := func(ctx context.Context, path string) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		stored, err := a.Documents.Upload(ctx, filepath.Base(path), f)
		if err != nil {
			return err
		}
		app, err := a.Applications.Submit(ctx, applications.SubmitInput{JobID: jobID, CVURL: stored.CVURL})
		if err != nil {
			return err
		}
		logger.Info("submitted",
			zap.String("file", filepath.Base(path)),
			zap.String("application_id", app.ID),
			zap.Intp("match_percentage", app.MatchPercentage),
			zap.String("status", app.Status),
		)
		return nil
	}

	inbox := &inboxWatcher{Submit: submit, Quiet: viper.GetDuration("watch.quiet"), Logger: logger}
	return inbox.Run(ctx, w.Events, w.Errors)
}

// inboxWatcher submits each CV file once its size has stopped changing for
// Quiet. A failed submit is retried on the next write to the file.
type inboxWatcher struct {
	Submit func(ctx context.Context, path string) error
	// Size defaults to os.Stat.
	Size   func(path string) (int64, error)
	Quiet  time.Duration
	Logger *zap.Logger
}

type pendingFile struct {
	size    int64
	changed time.Time
}

func (w *inboxWatcher) size(path string) (int64, error) {
	if w.Size != nil {
		return w.Size(path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Run consumes watcher events until ctx is done or a channel closes.
func (w *inboxWatcher) Run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	quiet := w.Quiet
	if quiet <= 0 {
		quiet = defaultQuietPeriod
	}
	ticker := time.NewTicker(quiet / 2)
	defer ticker.Stop()

	pending := map[string]pendingFile{}
	submitted := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if !isCVFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				delete(pending, event.Name)
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if _, done := submitted[event.Name]; done {
				continue
			}
			size, err := w.size(event.Name)
			if err != nil {
				continue
			}
			pending[event.Name] = pendingFile{size: size, changed: time.Now()}
		case <-ticker.C:
			w.flush(ctx, pending, submitted, quiet)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.Logger.Warn("watch overflow; some files may be missed", zap.Error(err))
				continue
			}
			w.Logger.Error("watch error", zap.Error(err))
		}
	}
}

// flush submits pending files whose size held steady for quiet.
func (w *inboxWatcher) flush(ctx context.Context, pending map[string]pendingFile, submitted map[string]struct{}, quiet time.Duration) {
	now := time.Now()
	for path, p := range pending {
		if now.Sub(p.changed) < quiet {
			continue
		}
		size, err := w.size(path)
		if err != nil {
			delete(pending, path)
			continue
		}
		if size == 0 || size != p.size {
			pending[path] = pendingFile{size: size, changed: now}
			continue
		}
		delete(pending, path)
		if err := w.Submit(ctx, path); err != nil {
			w.Logger.Error("submit failed", zap.String("file", path), zap.Error(err))
			continue
		}
		submitted[path] = struct{}{}
	}
}

func isCVFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range cvExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
