package service

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/user/shortlinks/internal/config"
	"github.com/user/shortlinks/internal/models"
)

type clickJob struct {
	linkID uuid.UUID
	rc     models.RequestContext
}

// Recorder appends click events off the request path. Record enqueues
// onto a bounded queue drained by a fixed pool of workers; when the queue
// is full the event is dropped. The counter on the link is authoritative,
// events are best-effort.
type Recorder struct {
	clicks     ClickRepository
	geo        GeoLocator
	geoTimeout time.Duration
	log        *logrus.Entry
	now        func() time.Time

	queue  chan clickJob
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewRecorder starts cfg.Workers workers. geo may be nil.
func NewRecorder(clicks ClickRepository, geo GeoLocator, cfg config.AnalyticsConfig, log *logrus.Entry) *Recorder {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 1
	}

	geoTimeout := cfg.GeoTimeout
	if geoTimeout <= 0 {
		geoTimeout = 1500 * time.Millisecond
	}

	r := &Recorder{
		clicks:     clicks,
		geo:        geo,
		geoTimeout: geoTimeout,
		log:        log,
		now:        time.Now,
		queue:      make(chan clickJob, queueSize),
	}

	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.worker()
	}
	return r
}

// Record queues one click. It never blocks.
func (r *Recorder) Record(linkID uuid.UUID, rc models.RequestContext) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}

	select {
	case r.queue <- clickJob{linkID: linkID, rc: rc}:
	default:
		r.log.WithField("link_id", linkID).Warn("click queue full, dropping event")
	}
}

// Close stops accepting clicks and waits for the queue to drain or ctx
// to end, whichever comes first.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for job := range r.queue {
		r.store(job)
	}
}

func (r *Recorder) store(job clickJob) {
	event := r.enrich(job)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.clicks.InsertClickEvent(ctx, event); err != nil {
		r.log.WithError(err).WithField("link_id", job.linkID).Error("failed to store click event")
	}
}

func (r *Recorder) enrich(job clickJob) *models.ClickEvent {
	rc := job.rc
	at := rc.At
	if at.IsZero() {
		at = r.now()
	}

	event := &models.ClickEvent{
		ID:        uuid.New(),
		LinkID:    job.linkID,
		UserAgent: rc.UserAgent,
		Device:    DetectDevice(rc.UserAgent),
		Browser:   DetectBrowser(rc.UserAgent),
		CreatedAt: at.UTC(),
	}
	if rc.IP != "" {
		ip := rc.IP
		event.IP = &ip
	}
	if rc.Referrer != "" {
		ref := rc.Referrer
		event.Referrer = &ref
	}

	if loc := r.locate(rc.IP); loc != nil {
		if loc.Country != "" {
			event.Country = &loc.Country
		}
		if loc.City != "" {
			event.City = &loc.City
		}
	}
	return event
}

func (r *Recorder) locate(ip string) *models.GeoLocation {
	if r.geo == nil || !isPublicIP(ip) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.geoTimeout)
	defer cancel()

	loc, err := r.geo.Lookup(ctx, ip)
	if err != nil {
		r.log.WithError(err).WithField("ip", ip).Debug("geo lookup failed")
		return nil
	}
	return loc
}

// isPublicIP is false for anything a geolocation service cannot place.
func isPublicIP(raw string) bool {
	ip := net.ParseIP(raw)
	if ip == nil {
		return false
	}
	return !ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsUnspecified() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() &&
		!ip.IsMulticast()
}
