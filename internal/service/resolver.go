package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/user/shortlinks/internal/config"
	"github.com/user/shortlinks/internal/models"
	"github.com/user/shortlinks/internal/repository"
)

// Resolver turns a short code into a redirect decision and accounts the
// click.
//
// The liveness checks run against a snapshot (cache or database) and only
// short-circuit obvious denials. The decision to count a click is made by
// LinkRepository.ConsumeClick, whose conditional update re-checks every
// condition atomically. Concurrent requests therefore can never exceed a
// quota or consume a one-time link twice, whatever the snapshot said.
type Resolver struct {
	links    LinkRepository
	cache    LinkCache
	recorder ClickRecorder
	policy   config.ExpiryPolicy
	budget   time.Duration
	log      *logrus.Entry
	now      func() time.Time
}

// NewResolver creates a resolver. cache may be nil.
func NewResolver(
	links LinkRepository,
	cache LinkCache,
	recorder ClickRecorder,
	cfg config.ShortenerConfig,
	log *logrus.Entry,
) *Resolver {
	budget := cfg.ResolveBudget
	if budget <= 0 {
		budget = 5 * time.Second
	}
	return &Resolver{
		links:    links,
		cache:    cacheOrNoop(cache),
		recorder: recorder,
		policy:   cfg.ExpiryPolicy,
		budget:   budget,
		log:      log,
		now:      time.Now,
	}
}

// Resolve runs the redirect state machine for code:
// 1. Lookup (cache, then storage)
// 2. Inactive links are denied
// 3. Time expiry is written back and denied
// 4. Exhausted quotas are written back and denied
// 5. The click is consumed atomically (one-time links retire here)
// 6. The click event is queued and the destination returned
//
// A non-nil error means storage failed; the outcome is then meaningless.
func (r *Resolver) Resolve(ctx context.Context, code string, rc models.RequestContext) (models.Outcome, error) {
	// Step 1: Lookup
	if !validLookupCode(code) {
		return models.Outcome{State: models.StateNotFound}, nil
	}

	link, err := r.lookup(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Outcome{State: models.StateNotFound}, nil
	}
	if err != nil {
		return models.Outcome{}, fmt.Errorf("failed to look up %q: %w", code, err)
	}

	now := r.now().UTC()

	// Step 2: Active flag
	if !link.IsActive {
		return models.Outcome{State: denialState(link, now)}, nil
	}

	// Step 3: Time expiry
	if link.IsExpired(now) {
		r.retire(ctx, link, r.policy == config.PolicyDelete)
		return models.Outcome{State: models.StateExpired}, nil
	}

	// Step 4: Quota
	if link.QuotaExhausted() {
		r.retire(ctx, link, false)
		return models.Outcome{State: models.StateLimitReached}, nil
	}

	// Step 5: Consume. A client hanging up must not undo a counted click,
	// so the transaction runs detached from the request.
	consumeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.budget)
	defer cancel()

	res, err := r.links.ConsumeClick(consumeCtx, link.ID, now, r.policy == config.PolicyDelete)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("failed to record click on %q: %w", code, err)
	}
	if !res.Accepted {
		return r.classifyRejected(ctx, link, now)
	}

	if res.Deactivated || res.Deleted || (link.MaxClicks != nil && res.Clicks >= int64(*link.MaxClicks)) {
		r.invalidate(ctx, link.ShortCode)
	}

	// Step 6: Success
	if !res.Deleted && r.recorder != nil {
		r.recorder.Record(link.ID, rc)
	}

	return models.Outcome{State: models.StateRedirect, Target: link.OriginalURL}, nil
}

func (r *Resolver) lookup(ctx context.Context, code string) (*models.Link, error) {
	cached, err := r.cache.Get(ctx, code)
	if err != nil {
		r.log.WithError(err).WithField("short_code", code).Warn("cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	link, err := r.links.GetByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if link.IsActive {
		if err := r.cache.Set(ctx, link); err != nil {
			r.log.WithError(err).WithField("short_code", code).Warn("cache write failed")
		}
	}
	return link, nil
}

// classifyRejected explains a consume that lost a race, from a fresh
// read of the row or, if the row is gone, from the snapshot.
func (r *Resolver) classifyRejected(ctx context.Context, snapshot *models.Link, now time.Time) (models.Outcome, error) {
	r.invalidate(ctx, snapshot.ShortCode)

	fresh, err := r.links.GetByID(ctx, snapshot.ID)
	if errors.Is(err, repository.ErrNotFound) {
		// Only expiry and one-time consumption delete rows on this path;
		// anything else was removed by its owner.
		if snapshot.IsOneTime || snapshot.IsExpired(now) {
			return models.Outcome{State: models.StateExpired}, nil
		}
		return models.Outcome{State: models.StateNotFound}, nil
	}
	if err != nil {
		return models.Outcome{}, fmt.Errorf("failed to re-read %q: %w", snapshot.ShortCode, err)
	}

	state := denialState(fresh, now)
	if fresh.IsActive && state == models.StateLimitReached {
		r.retire(ctx, fresh, false)
	}
	return models.Outcome{State: state}, nil
}

// denialState names why a link cannot be resolved at now. Time expiry
// wins over an exhausted quota.
func denialState(link *models.Link, now time.Time) models.ResolveState {
	switch {
	case link.IsExpired(now):
		return models.StateExpired
	case link.QuotaExhausted():
		return models.StateLimitReached
	default:
		return models.StateExpired
	}
}

// retire writes a detected denial back to storage. Failures are logged;
// the denial stands either way and the next request will retry.
func (r *Resolver) retire(ctx context.Context, link *models.Link, remove bool) {
	entry := r.log.WithField("short_code", link.ShortCode)

	var err error
	if remove {
		err = r.links.Delete(ctx, link.ID)
	} else {
		err = r.links.Deactivate(ctx, link.ID)
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		entry.WithError(err).Warn("liveness write-back failed")
	}

	r.invalidate(ctx, link.ShortCode)
}

func (r *Resolver) invalidate(ctx context.Context, code string) {
	if err := r.cache.Invalidate(ctx, code); err != nil {
		r.log.WithError(err).WithField("short_code", code).Warn("cache invalidation failed")
	}
}
