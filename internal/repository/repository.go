package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Siddarth2230/qrlinks/internal/models"
)

var (
	ErrNotFound  = errors.New("short link not found")
	ErrCodeTaken = errors.New("short code already taken")
)

// LinkStore persists short links. Implementations must enforce code
// uniqueness themselves and report a duplicate insert as ErrCodeTaken.
// Every mutating call is a single atomic operation on the backing store.
type LinkStore interface {
	Insert(ctx context.Context, link *models.ShortLink) error
	FindByCode(ctx context.Context, code string) (*models.ShortLink, error)
	// FindByEvent returns the earliest-created link bound to eventRef.
	FindByEvent(ctx context.Context, eventRef string) (*models.ShortLink, error)
	UpdateTarget(ctx context.Context, code, target string, at time.Time) (*models.ShortLink, error)
	IncrementVisits(ctx context.Context, code string, at time.Time) (*models.ShortLink, error)
	Delete(ctx context.Context, code string) error
	// DeleteByEvent removes every link bound to eventRef and returns their codes.
	DeleteByEvent(ctx context.Context, eventRef string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}
