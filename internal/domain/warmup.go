package domain

import "time"

// WarmupConfig parameterizes a sending domain's reputation ramp.
// The daily ceiling grows by DailyIncrease per elapsed day, starting at
// StartVolume and capped at MaxDailyVolume, until MaxDays have passed.
type WarmupConfig struct {
	StartVolume    int     `json:"start_volume" yaml:"start_volume" db:"start_volume"`
	MaxDailyVolume int     `json:"max_daily_volume" yaml:"max_daily_volume" db:"max_daily_volume"`
	DailyIncrease  float64 `json:"daily_increase" yaml:"daily_increase" db:"daily_increase"`
	MaxDays        int     `json:"max_days" yaml:"max_days" db:"max_days"`
}

// WarmupState is the persisted warmup record for one sending domain.
// It is mutated only by operator lifecycle actions and by the completion
// sweep; the daily ceiling itself is a pure function of elapsed time.
type WarmupState struct {
	Domain            string       `json:"domain" db:"domain"`
	WarmupEnabled     bool         `json:"warmup_enabled" db:"warmup_enabled"`
	WarmupStartDate   *time.Time   `json:"warmup_start_date,omitempty" db:"warmup_start_date"`
	Config            WarmupConfig `json:"config"`
	IsProductionReady bool         `json:"is_production_ready" db:"is_production_ready"`
	UpdatedAt         time.Time    `json:"updated_at" db:"updated_at"`
}
