package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/user/shortlinks/internal/config"
	"github.com/user/shortlinks/internal/models"
	"github.com/user/shortlinks/internal/repository"
)

// LinkService handles link creation and the owner-facing operations.
type LinkService struct {
	links LinkRepository
	cache LinkCache
	qr    QREncoder
	cfg   config.ShortenerConfig
	log   *logrus.Entry

	now      func() time.Time
	generate func(length int) (string, error)
}

// NewLinkService creates a new link service. cache may be nil.
func NewLinkService(
	links LinkRepository,
	cache LinkCache,
	qr QREncoder,
	cfg config.ShortenerConfig,
	log *logrus.Entry,
) *LinkService {
	return &LinkService{
		links:    links,
		cache:    cacheOrNoop(cache),
		qr:       qr,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		generate: generateCode,
	}
}

// ShortURL is the public URL of a short code.
func (s *LinkService) ShortURL(code string) string {
	return fmt.Sprintf("%s/%s", s.cfg.BaseURL, code)
}

// Create shortens a URL. owner is nil for anonymous requests, whose links
// always expire after AnonymousTTL and carry no quota or one-time flag.
//
// Flow:
// 1. Normalize and validate the destination
// 2. Apply the creation policy for the caller
// 3. Pick the short code (custom or generated) and store the link
func (s *LinkService) Create(ctx context.Context, req models.CreateLinkRequest, owner *string) (*models.CreateLinkResponse, error) {
	// Step 1: Destination
	dest, err := NormalizeURL(req.URL)
	if err != nil {
		return nil, err
	}

	// Step 2: Policy
	now := s.now().UTC()
	link := &models.Link{
		OriginalURL: dest,
		IsActive:    true,
		UserID:      owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	customCode := req.CustomCode
	if owner == nil {
		// Anonymous links get a generated code, like every other owner-only field.
		customCode = ""
		expiresAt := now.Add(s.cfg.AnonymousTTL)
		link.ExpiresAt = &expiresAt
	} else {
		if req.ExpiresAt != nil {
			if !req.ExpiresAt.After(now) {
				return nil, fmt.Errorf("%w: expiresAt must be in the future", ErrInvalidInput)
			}
			expiresAt := req.ExpiresAt.UTC()
			link.ExpiresAt = &expiresAt
		}
		if req.MaxClicks != nil {
			if *req.MaxClicks < 1 {
				return nil, fmt.Errorf("%w: maxClicks must be at least 1", ErrInvalidInput)
			}
			maxClicks := *req.MaxClicks
			link.MaxClicks = &maxClicks
		}
		link.IsOneTime = req.IsOneTime
	}

	// Step 3: Short code
	if customCode != "" {
		err = s.insertCustom(ctx, link, customCode)
	} else {
		err = s.insertGenerated(ctx, link)
	}
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"short_code": link.ShortCode,
		"anonymous":  owner == nil,
	}).Info("link created")

	return &models.CreateLinkResponse{
		ID:          link.ID,
		ShortCode:   link.ShortCode,
		ShortURL:    s.ShortURL(link.ShortCode),
		OriginalURL: link.OriginalURL,
		QRCode:      link.QRCode,
		ExpiresAt:   link.ExpiresAt,
		CreatedAt:   link.CreatedAt,
	}, nil
}

func (s *LinkService) insertCustom(ctx context.Context, link *models.Link, raw string) error {
	code, err := NormalizeCustomCode(raw)
	if err != nil {
		return err
	}

	exists, err := s.links.Exists(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to check code availability: %w", err)
	}
	if exists {
		return ErrCodeTaken
	}

	link.ShortCode = code
	err = s.insert(ctx, link)
	if errors.Is(err, repository.ErrAlreadyExists) {
		return ErrCodeTaken
	}
	return err
}

// insertGenerated retries on collisions, whether seen by Exists or only
// by the unique index when two creators race for the same code.
func (s *LinkService) insertGenerated(ctx context.Context, link *models.Link) error {
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		code, err := s.generate(s.cfg.CodeLength)
		if err != nil {
			return err
		}

		exists, err := s.links.Exists(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to check code availability: %w", err)
		}
		if exists {
			continue
		}

		link.ShortCode = code
		err = s.insert(ctx, link)
		if errors.Is(err, repository.ErrAlreadyExists) {
			continue
		}
		return err
	}
	return fmt.Errorf("failed to generate a free short code after %d attempts", s.cfg.MaxAttempts)
}

func (s *LinkService) insert(ctx context.Context, link *models.Link) error {
	link.QRCode = s.qrDataURL(link.ShortCode)

	if err := s.links.Create(ctx, link); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return err
		}
		return fmt.Errorf("failed to store link: %w", err)
	}
	return nil
}

// qrDataURL is best-effort: a failed render leaves the field empty.
func (s *LinkService) qrDataURL(code string) string {
	if s.qr == nil {
		return ""
	}
	dataURL, err := s.qr.DataURL(s.ShortURL(code))
	if err != nil {
		s.log.WithError(err).WithField("short_code", code).Warn("qr code generation failed")
		return ""
	}
	return dataURL
}

// List returns the owner's links, newest first.
func (s *LinkService) List(ctx context.Context, owner string) ([]models.Link, error) {
	links, err := s.links.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// Get returns a link the caller owns.
func (s *LinkService) Get(ctx context.Context, id uuid.UUID, owner string) (*models.Link, error) {
	link, err := s.links.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	if !link.OwnedBy(owner) {
		return nil, ErrForbidden
	}
	return link, nil
}

// Details returns a link with its daily click history, one entry per day
// for the last historyDays days.
func (s *LinkService) Details(ctx context.Context, id uuid.UUID, owner string) (*models.LinkDetails, error) {
	link, err := s.Get(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	today := models.DayStart(s.now())
	from := today.AddDate(0, 0, -(historyDays - 1))
	rows, err := s.links.DailyClicks(ctx, id, from, today)
	if err != nil {
		return nil, fmt.Errorf("failed to read click history: %w", err)
	}

	return &models.LinkDetails{
		Link:         *link,
		ShortURL:     s.ShortURL(link.ShortCode),
		ClickHistory: repository.FillDays(from, historyDays, countsByDate(rows)),
	}, nil
}

// Delete removes a link the caller owns together with its events.
func (s *LinkService) Delete(ctx context.Context, id uuid.UUID, owner string) error {
	link, err := s.Get(ctx, id, owner)
	if err != nil {
		return err
	}

	err = s.links.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	if err := s.cache.Invalidate(ctx, link.ShortCode); err != nil {
		s.log.WithError(err).WithField("short_code", link.ShortCode).Warn("cache invalidation failed")
	}
	return nil
}

// QR renders the PNG QR code of a link the caller owns.
func (s *LinkService) QR(ctx context.Context, id uuid.UUID, owner string) ([]byte, error) {
	link, err := s.Get(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if s.qr == nil {
		return nil, errors.New("qr encoder not configured")
	}

	png, err := s.qr.PNG(s.ShortURL(link.ShortCode))
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}
	return png, nil
}
