package bounce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/diogenesmendes01/email-gateway/internal/domain"
	"github.com/diogenesmendes01/email-gateway/internal/dsn"
	"github.com/diogenesmendes01/email-gateway/internal/pkg/logger"
	"github.com/diogenesmendes01/email-gateway/internal/queue"
)

// Suppressor records addresses that must never be mailed again.
type Suppressor interface {
	Suppress(ctx context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource, dsnStatus, dsnDiag string) error
}

// Enqueuer schedules follow-up work for a processed bounce.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job, delay time.Duration) error
}

// RecipientResult is the outcome for one recipient of a delivery status
// notification.
type RecipientResult struct {
	Recipient      string `json:"recipient"`
	Type           Type   `json:"type"`
	Status         string `json:"status,omitempty"`
	DiagnosticCode string `json:"diagnostic_code,omitempty"`
	Reason         string `json:"reason"`
	Suppressed     bool   `json:"suppressed"`
}

// Result summarizes the processing of a whole DSN.
type Result struct {
	ReportingMTA string            `json:"reporting_mta,omitempty"`
	Recipients   []RecipientResult `json:"recipients"`
	Suppressed   int               `json:"suppressed"`
}

// Processor turns raw DSN bodies into suppression entries and status
// update jobs. Collaborator failures are collected rather than aborting
// the remaining recipients, so one flaky dependency cannot lose the rest
// of a multi-recipient report.
type Processor struct {
	suppressions Suppressor
	jobs         Enqueuer
	log          *logger.Logger
}

func NewProcessor(suppressions Suppressor, jobs Enqueuer) *Processor {
	return &Processor{
		suppressions: suppressions,
		jobs:         jobs,
		log:          logger.New("bounce"),
	}
}

type statusUpdate struct {
	Email          string `json:"email"`
	BounceType     Type   `json:"bounce_type"`
	Status         string `json:"status,omitempty"`
	DiagnosticCode string `json:"diagnostic_code,omitempty"`
	Reason         string `json:"reason"`
}

// Process parses raw and handles every recipient in report order. The
// returned Result is valid even when err is non-nil; err aggregates any
// collaborator failures encountered along the way.
func (p *Processor) Process(ctx context.Context, raw []byte) (*Result, error) {
	doc := dsn.Parse(string(raw))
	result := &Result{
		ReportingMTA: doc.ReportingMTA,
		Recipients:   make([]RecipientResult, 0, len(doc.Recipients)),
	}

	var errs []error
	for _, rcpt := range doc.Recipients {
		c := ClassifyRecipient(rcpt)
		rr := RecipientResult{
			Recipient:      rcpt.FinalRecipient,
			Type:           c.Type,
			Status:         rcpt.Status,
			DiagnosticCode: rcpt.DiagnosticCode,
			Reason:         c.Reason,
		}

		if c.ShouldSuppress {
			err := p.suppressions.Suppress(ctx, rcpt.FinalRecipient,
				domain.ReasonHardBounce, domain.SourceDSN, rcpt.Status, rcpt.DiagnosticCode)
			if err != nil {
				p.log.Error("suppress failed", "recipient", rcpt.FinalRecipient, "error", err.Error())
				errs = append(errs, fmt.Errorf("suppress %s: %w", rcpt.FinalRecipient, err))
			} else {
				rr.Suppressed = true
				result.Suppressed++
			}
		}

		if err := p.enqueueStatusUpdate(ctx, rcpt, c); err != nil {
			p.log.Error("enqueue status update failed", "recipient", rcpt.FinalRecipient, "error", err.Error())
			errs = append(errs, fmt.Errorf("enqueue %s: %w", rcpt.FinalRecipient, err))
		}

		result.Recipients = append(result.Recipients, rr)
	}

	if len(doc.Recipients) > 0 {
		p.log.Info("dsn processed",
			"recipients", len(doc.Recipients),
			"suppressed", result.Suppressed,
			"reporting_mta", doc.ReportingMTA)
	}
	return result, errors.Join(errs...)
}

func (p *Processor) enqueueStatusUpdate(ctx context.Context, rcpt dsn.Recipient, c Classification) error {
	payload, err := json.Marshal(statusUpdate{
		Email:          rcpt.FinalRecipient,
		BounceType:     c.Type,
		Status:         rcpt.Status,
		DiagnosticCode: rcpt.DiagnosticCode,
		Reason:         c.Reason,
	})
	if err != nil {
		return fmt.Errorf("marshal status update: %w", err)
	}
	return p.jobs.Enqueue(ctx, &queue.Job{
		Type:    queue.TypeEmailStatusUpdate,
		Payload: payload,
	}, 0)
}
