package services

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"kb-portal/cache"
	"kb-portal/events"
	"kb-portal/models"
	"kb-portal/policy"
	"kb-portal/repositories"
)

const viewDayLayout = "2006-01-02"

type ViewService interface {
	Record(ctx context.Context, article *models.Article, principal *policy.Principal, ip string) (bool, error)
}

type viewService struct {
	viewRepo  repositories.ViewRepository
	guard     cache.ViewGuard
	publisher events.Publisher
	loc       *time.Location
	now       Clock
}

func NewViewService(viewRepo repositories.ViewRepository, guard cache.ViewGuard, publisher events.Publisher, loc *time.Location, now Clock) ViewService {
	if guard == nil {
		guard = cache.NoopGuard{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &viewService{
		viewRepo:  viewRepo,
		guard:     guard,
		publisher: publisher,
		loc:       loc,
		now:       orSystem(now),
	}
}

// IdentityKey names who is viewing: the user when authenticated, the
// client address otherwise.
func IdentityKey(principal *policy.Principal, ip string) string {
	if principal != nil {
		return "user:" + strconv.FormatUint(uint64(principal.UserID), 10)
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// Record counts at most one view per article, identity and server-local
// day. It reports whether this call was the counted one and bumps
// article.ViewCount in memory when it was.
func (s *viewService) Record(ctx context.Context, article *models.Article, principal *policy.Principal, ip string) (bool, error) {
	now := s.now()
	day := now.In(s.loc).Format(viewDayLayout)
	identity := IdentityKey(principal, ip)

	first, err := s.guard.Claim(ctx, article.ID, identity, day)
	if err != nil {
		slog.WarnContext(ctx, "view guard unavailable", "article_id", article.ID, "error", err)
		first = true
	}
	if !first {
		return false, nil
	}

	view := &models.View{
		ArticleID:   article.ID,
		IdentityKey: identity,
		ViewedOn:    day,
		IPAddress:   ip,
		ViewedAt:    now.UTC(),
	}
	if principal != nil {
		view.UserID = uintPtr(principal.UserID)
	}

	counted, err := s.viewRepo.Record(ctx, view)
	if err != nil {
		if rerr := s.guard.Release(ctx, article.ID, identity, day); rerr != nil {
			slog.WarnContext(ctx, "view guard release failed", "article_id", article.ID, "error", rerr)
		}
		return false, err
	}
	if counted {
		article.ViewCount++
		publish(ctx, s.publisher, events.Event{
			Type:      events.ArticleViewed,
			ArticleID: article.ID,
			UserID:    view.UserID,
			Payload:   map[string]interface{}{"viewed_on": day},
		})
	}
	return counted, nil
}
