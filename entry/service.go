package entry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"mushimap-backend/vision"
)

var (
	ErrImageRequired  = errors.New("画像が指定されていません。画像をアップロードまたは撮影してください。")
	ErrUploadDisabled = errors.New("画像ストレージが設定されていません。")
	ErrNotFound       = errors.New("entry not found")
	ErrNotOwner       = errors.New("entry belongs to another user")
)

// Store is the persistence surface for entries.
type Store interface {
	Create(ctx context.Context, e *Entry) error
	ByUser(ctx context.Context, userID string) ([]Entry, error)
	All(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, id string) (*Entry, error)
	Delete(ctx context.Context, id string) error
}

// Blobs uploads an image and returns its URL.
type Blobs interface {
	Upload(ctx context.Context, publicID, imageDataURL string) (string, error)
}

// Oracle generates the ecological commentary attached to a save.
type Oracle interface {
	DescribeFind(ctx context.Context, name string, lat, lng float64) vision.FindDetails
}

type Service struct {
	store  Store
	blobs  Blobs
	oracle Oracle
	now    func() time.Time
}

func NewService(store Store, blobs Blobs, oracle Oracle) *Service {
	return &Service{store: store, blobs: blobs, oracle: oracle, now: time.Now}
}

// SaveRequest carries a new observation. Timestamp is optional; zero
// means "now". Image is a data URL.
type SaveRequest struct {
	Name      string  `json:"name"`
	Memo      string  `json:"memo"`
	Image     string  `json:"image"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

// Save uploads the image, gathers best-effort commentary and persists
// the entry. Commentary failure never blocks the save; upload failure
// does, since an entry without its photograph is useless.
func (s *Service) Save(ctx context.Context, userID string, req SaveRequest) (*Entry, error) {
	if req.Image == "" {
		return nil, ErrImageRequired
	}
	if s.blobs == nil {
		return nil, ErrUploadDisabled
	}
	publicID := fmt.Sprintf("%s/%s", userID, uuid.NewString())
	imageURL, err := s.blobs.Upload(ctx, publicID, req.Image)
	if err != nil {
		return nil, fmt.Errorf("画像のアップロードに失敗しました: %w", err)
	}

	e := &Entry{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Memo:      req.Memo,
		ImageURL:  imageURL,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Timestamp: req.Timestamp,
		UserID:    userID,
	}
	if e.Timestamp == 0 {
		e.Timestamp = s.now().UnixMilli()
	}
	if s.oracle != nil {
		details := s.oracle.DescribeFind(ctx, req.Name, req.Latitude, req.Longitude)
		links := make([]Link, len(details.Links))
		for i, l := range details.Links {
			links[i] = Link{Title: l.Title, URI: l.URI}
		}
		e.AIInsights = &AIInsights{Description: details.Description, Links: links}
	}

	if err := s.store.Create(ctx, e); err != nil {
		log.Printf("[entry][error] save failed user=%s err=%v", userID, err)
		return nil, err
	}
	log.Printf("[entry][saved] id=%s user=%s name=%s", e.ID, userID, e.Name)
	return e, nil
}

// ByUser lists the caller's entries, newest first.
func (s *Service) ByUser(ctx context.Context, userID string) ([]Entry, error) {
	return s.store.ByUser(ctx, userID)
}

// All lists every user's entries for the social map view.
func (s *Service) All(ctx context.Context) ([]Entry, error) {
	return s.store.All(ctx)
}

// Delete removes an entry after checking ownership.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if e == nil {
		return ErrNotFound
	}
	if e.UserID != userID {
		return ErrNotOwner
	}
	return s.store.Delete(ctx, id)
}
