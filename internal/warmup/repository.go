package warmup

import (
	"context"

	"github.com/diogenesmendes01/email-gateway/internal/domain"
)

// Repository defines the persistence contract for warmup state.
type Repository interface {
	// Get returns one domain's warmup state. Returns ErrNotFound if the
	// domain has never been enrolled.
	Get(ctx context.Context, sendingDomain string) (*domain.WarmupState, error)

	// Save upserts a domain's warmup state (last writer wins).
	Save(ctx context.Context, state *domain.WarmupState) error

	// ListEnabled returns every domain with warmup currently enabled.
	ListEnabled(ctx context.Context) ([]domain.WarmupState, error)
}
