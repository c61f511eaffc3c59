package suppression

import (
	"context"
	"fmt"
	"strings"

	"github.com/diogenesmendes01/email-gateway/internal/domain"
)

// Service implements suppression business logic. Safe for concurrent use.
type Service struct {
	repo Repository
}

// NewService creates a suppression service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// IsSuppressed checks whether an address is blocked from sending.
func (s *Service) IsSuppressed(ctx context.Context, email string) (bool, error) {
	return s.repo.IsSuppressed(ctx, normalize(email))
}

// Suppress adds an address to the do-not-send list.
func (s *Service) Suppress(ctx context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource, dsnStatus, dsnDiag string) error {
	email = normalize(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	entry := &domain.Suppression{
		Email:     email,
		Reason:    reason,
		Source:    source,
		DSNStatus: dsnStatus,
		DSNDiag:   dsnDiag,
	}
	return s.repo.Upsert(ctx, entry)
}

// Remove takes an address off the list. Returns ErrNotFound if it was
// not suppressed.
func (s *Service) Remove(ctx context.Context, email string) error {
	email = normalize(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	return s.repo.Remove(ctx, email)
}

// List returns suppression entries, newest first, with the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Suppression, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
