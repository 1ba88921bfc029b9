package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically deletes links whose expiry has passed.
type Sweeper struct {
	links    LinkRepository
	interval time.Duration
	log      *logrus.Entry
	now      func() time.Time
}

// NewSweeper creates a sweeper running every interval.
func NewSweeper(links LinkRepository, interval time.Duration, log *logrus.Entry) *Sweeper {
	return &Sweeper{
		links:    links,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Run sweeps until ctx is done. A non-positive interval disables it.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("expiry sweep disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry sweep stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.WithError(err).Error("expiry sweep failed")
			}
		}
	}
}

// SweepOnce deletes every expired link and returns how many went.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	n, err := s.links.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.WithField("count", n).Info("expired links removed")
	}
	return n, nil
}
