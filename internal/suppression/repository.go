package suppression

import (
	"context"
	"errors"

	"github.com/diogenesmendes01/email-gateway/internal/domain"
)

// ErrNotFound is returned when a suppression entry does not exist.
var ErrNotFound = errors.New("suppression entry not found")

// Repository defines the data access contract for the suppression list.
type Repository interface {
	// IsSuppressed returns true if the email is on the suppression list.
	IsSuppressed(ctx context.Context, email string) (bool, error)

	// Upsert adds an email to the suppression list, replacing the reason
	// and source of an existing entry. Idempotent.
	Upsert(ctx context.Context, s *domain.Suppression) error

	// Remove deletes a suppression entry. Returns ErrNotFound if it
	// doesn't exist.
	Remove(ctx context.Context, email string) error

	// List returns entries ordered newest first, with the total count.
	List(ctx context.Context, limit, offset int) ([]domain.Suppression, int, error)
}
