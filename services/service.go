package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"kb-portal/events"
	"kb-portal/models"
	"kb-portal/policy"
	"kb-portal/repositories"
)

// Clock returns the current time; services take one so tests can pin it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }

func orSystem(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}

func requireUser(p *policy.Principal) error {
	if p == nil {
		return models.ErrorUnauthorized{Message: "authentication required"}
	}
	return nil
}

func isNotFound(err error) bool {
	var nf models.ErrorNotFound
	return errors.As(err, &nf)
}

func forbidden(msg string) error {
	return models.ErrorForbidden{Message: msg}
}

// publish sends e and only logs a failure.
func publish(ctx context.Context, p events.Publisher, e events.Event) {
	if p == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := p.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "publish event failed", "type", e.Type, "article_id", e.ArticleID, "error", err)
	}
}

// uniqueIDs drops zeros and duplicates and sorts the rest.
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func summaries(articles []models.Article) []models.ArticleSummary {
	out := make([]models.ArticleSummary, 0, len(articles))
	for _, a := range articles {
		out = append(out, models.NewArticleSummary(a))
	}
	return out
}

func uintPtr(v uint) *uint { return &v }

// loadReadable fetches a published article by slug and applies the read
// policy. Drafts and future-dated articles are reported as missing.
func loadReadable(ctx context.Context, articles repositories.ArticleRepository, slug string, principal *policy.Principal, now time.Time) (*models.Article, error) {
	article, err := articles.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !article.IsPublishedAt(now) {
		return nil, models.ErrorNotFound{Resource: "article", Key: slug}
	}
	if !policy.CanAccess(article, principal) {
		return nil, models.ErrorForbidden{
			Message: "you do not have access to this article",
			Denied:  policy.Denial(article),
		}
	}
	return article, nil
}
