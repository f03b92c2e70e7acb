package services

import (
	"context"
	"log/slog"

	"kb-portal/events"
	"kb-portal/models"
	"kb-portal/repositories"
	"kb-portal/storage"
)

// BlobReleaser deletes files whose rows are already gone. A failed delete
// stays queued for the next retry and never fails the caller.
type BlobReleaser struct {
	store     storage.BlobStore
	releases  repositories.BlobReleaseRepository
	publisher events.Publisher
}

func NewBlobReleaser(store storage.BlobStore, releases repositories.BlobReleaseRepository, publisher events.Publisher) *BlobReleaser {
	return &BlobReleaser{store: store, releases: releases, publisher: publisher}
}

// Release tries each pending release once and returns how many succeeded.
func (b *BlobReleaser) Release(ctx context.Context, pending []models.PendingBlobRelease) int {
	done := 0
	for _, rel := range pending {
		if err := b.store.Delete(ctx, rel.Path); err != nil {
			slog.WarnContext(ctx, "blob release failed", "path", rel.Path, "attempts", rel.Attempts+1, "error", err)
			if ferr := b.releases.Failed(ctx, rel.ID, err); ferr != nil {
				slog.ErrorContext(ctx, "record blob release failure", "id", rel.ID, "error", ferr)
			}
			publish(ctx, b.publisher, events.Event{
				Type:    events.BlobReleaseFailed,
				Payload: map[string]interface{}{"path": rel.Path, "error": err.Error()},
			})
			continue
		}
		if err := b.releases.Done(ctx, rel.ID); err != nil {
			slog.ErrorContext(ctx, "clear blob release", "id", rel.ID, "error", err)
			continue
		}
		done++
	}
	return done
}

// RetryPending works through up to limit queued releases.
func (b *BlobReleaser) RetryPending(ctx context.Context, limit int) (int, error) {
	pending, err := b.releases.Pending(ctx, limit)
	if err != nil {
		return 0, err
	}
	return b.Release(ctx, pending), nil
}
