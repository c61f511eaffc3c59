package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/diogenesmendes01/email-gateway/internal/domain"
	"github.com/diogenesmendes01/email-gateway/internal/warmup"
)

// WarmupRepo implements warmup.Repository.
type WarmupRepo struct{ db *sql.DB }

// NewWarmupRepo creates a Postgres-backed warmup repository.
func NewWarmupRepo(db *sql.DB) *WarmupRepo { return &WarmupRepo{db: db} }

const warmupColumns = `domain, warmup_enabled, warmup_start_date,
	start_volume, max_daily_volume, daily_increase, max_days,
	production_ready, updated_at`

func (r *WarmupRepo) Get(ctx context.Context, sendingDomain string) (*domain.WarmupState, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+warmupColumns+` FROM gateway_warmup_domains WHERE domain = $1`,
		sendingDomain)

	state, err := scanWarmup(row)
	if err == sql.ErrNoRows {
		return nil, warmup.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get warmup state for %s: %w", sendingDomain, err)
	}
	return state, nil
}

func (r *WarmupRepo) Save(ctx context.Context, s *domain.WarmupState) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gateway_warmup_domains
			(domain, warmup_enabled, warmup_start_date,
			 start_volume, max_daily_volume, daily_increase, max_days,
			 production_ready, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (domain) DO UPDATE SET
			warmup_enabled = $2,
			warmup_start_date = $3,
			start_volume = $4,
			max_daily_volume = $5,
			daily_increase = $6,
			max_days = $7,
			production_ready = $8,
			updated_at = NOW()
	`, s.Domain, s.WarmupEnabled, s.WarmupStartDate,
		s.Config.StartVolume, s.Config.MaxDailyVolume, s.Config.DailyIncrease, s.Config.MaxDays,
		s.IsProductionReady)
	if err != nil {
		return fmt.Errorf("save warmup state for %s: %w", s.Domain, err)
	}
	return nil
}

func (r *WarmupRepo) ListEnabled(ctx context.Context) ([]domain.WarmupState, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+warmupColumns+` FROM gateway_warmup_domains WHERE warmup_enabled = true`)
	if err != nil {
		return nil, fmt.Errorf("list enabled warmup domains: %w", err)
	}
	defer rows.Close()

	var out []domain.WarmupState
	for rows.Next() {
		state, err := scanWarmup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warmup state: %w", err)
		}
		out = append(out, *state)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWarmup(row rowScanner) (*domain.WarmupState, error) {
	var s domain.WarmupState
	var start sql.NullTime
	err := row.Scan(&s.Domain, &s.WarmupEnabled, &start,
		&s.Config.StartVolume, &s.Config.MaxDailyVolume, &s.Config.DailyIncrease, &s.Config.MaxDays,
		&s.IsProductionReady, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if start.Valid {
		s.WarmupStartDate = &start.Time
	}
	return &s, nil
}
