package usecase

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/semmidev/dbwarden/internal/domain"
)

// Uploader copies finished artifacts to off-site targets and applies the
// retention policy there as well.
type Uploader struct {
	targets []UploadTarget
	logger  Logger
}

func NewUploader(targets []UploadTarget, logger Logger) *Uploader {
	return &Uploader{targets: targets, logger: logger}
}

func (u *Uploader) Enabled() bool {
	return len(u.targets) > 0
}

// Upload sends art to every target concurrently and waits for all of them.
// It returns the names of the targets that failed.
func (u *Uploader) Upload(ctx context.Context, art domain.Artifact) []string {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []string
	)
	filename := filepath.Base(art.Path)

	for _, target := range u.targets {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			u.logger.Infof("[%s] Uploading to %s...", art.TargetName, t.Name)
			if err := t.Storage.Upload(ctx, art.Path, filename); err != nil {
				u.logger.Errorf("[%s] Failed to upload to %s: %v", art.TargetName, t.Name, err)
				mu.Lock()
				failed = append(failed, t.Name)
				mu.Unlock()
				return
			}
			u.logger.Infof("[%s] Successfully uploaded to %s", art.TargetName, t.Name)
		}(target)
	}

	wg.Wait()
	return failed
}

// Prune runs retention against every target and returns the combined
// statistics.
func (u *Uploader) Prune(ctx context.Context, retention *Retention, deleteDays, keepMin int) domain.RetentionStats {
	var total domain.RetentionStats
	for _, t := range u.targets {
		stats, err := retention.Cleanup(ctx, t.Storage, deleteDays, keepMin)
		if err != nil {
			u.logger.Errorf("Retention on %s failed: %v", t.Name, err)
			continue
		}
		if stats.Total > 0 {
			u.logger.Infof("Retention on %s: deleted %d of %d backups", t.Name, stats.Deleted, stats.Total)
		}
		total.Deleted += stats.Deleted
		total.Total += stats.Total
		total.Failed += stats.Failed
	}
	return total
}
