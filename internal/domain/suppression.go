package domain

import "time"

// SuppressionReason enumerates why an email address was suppressed.
type SuppressionReason string

const (
	ReasonHardBounce  SuppressionReason = "hard_bounce"
	ReasonComplaint   SuppressionReason = "spam_complaint"
	ReasonUnsubscribe SuppressionReason = "unsubscribe"
	ReasonManual      SuppressionReason = "manual"
)

// SuppressionSource indicates where the suppression signal originated.
type SuppressionSource string

const (
	SourceDSN    SuppressionSource = "dsn"
	SourceAPI    SuppressionSource = "api"
	SourceImport SuppressionSource = "import"
)

// Suppression is one entry on the global do-not-send list.
type Suppression struct {
	ID        string            `json:"id" db:"id"`
	Email     string            `json:"email" db:"email"`
	Reason    SuppressionReason `json:"reason" db:"reason"`
	Source    SuppressionSource `json:"source" db:"source"`
	DSNStatus string            `json:"dsn_status,omitempty" db:"dsn_status"`
	DSNDiag   string            `json:"dsn_diag,omitempty" db:"dsn_diag"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}
