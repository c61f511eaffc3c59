// Package bounce classifies parsed delivery status notifications into
// hard/soft/unknown verdicts and feeds hard bounces into the suppression
// list and job queue.
package bounce

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/diogenesmendes01/email-gateway/internal/dsn"
)

// Type is the bounce verdict for a recipient outcome.
type Type string

const (
	Hard    Type = "hard"
	Soft    Type = "soft"
	Unknown Type = "unknown"
)

// Classification is the verdict for one recipient outcome.
type Classification struct {
	Type Type `json:"type"`
	// ShouldSuppress is true only for a parsed 5.x.x status code. An
	// uncertain signal never suppresses.
	ShouldSuppress bool   `json:"should_suppress"`
	Reason         string `json:"reason"`
}

// statusPattern matches an extended SMTP status code (RFC 3463) at the
// start of the Status field, e.g. "5.1.1".
var statusPattern = regexp.MustCompile(`^([2-5])\.(\d{1,3})\.(\d{1,3})`)

// permanentReasons maps well-known 5.x.x subcodes to human-readable
// explanations. Codes not listed here still classify as hard; only the
// reason text is less specific.
var permanentReasons = map[string]string{
	"5.1.0":  "bad destination address",
	"5.1.1":  "mailbox does not exist",
	"5.1.2":  "destination domain does not exist",
	"5.1.3":  "invalid recipient address syntax",
	"5.1.6":  "mailbox has moved",
	"5.1.10": "recipient address rejected",
	"5.2.1":  "mailbox disabled",
	"5.2.2":  "mailbox full",
	"5.4.1":  "recipient host rejected connection",
	"5.4.4":  "unable to route to destination",
	"5.5.0":  "protocol error",
	"5.7.1":  "delivery not authorized, message refused",
	"5.7.26": "sender authentication required",
}

// transientReasons maps well-known 4.x.x subcodes to explanations.
var transientReasons = map[string]string{
	"4.2.1": "mailbox temporarily disabled",
	"4.2.2": "mailbox full",
	"4.3.2": "receiving system not accepting messages",
	"4.4.1": "no answer from destination host",
	"4.4.2": "connection dropped during transmission",
	"4.4.7": "delivery time expired",
	"4.7.0": "temporarily deferred by receiving policy",
	"4.7.1": "greylisted or rate limited by receiver",
}

// Classify returns the verdict for a parsed DSN, based on its first
// recipient outcome. Documents are expected to carry one bounce verdict
// for alerting; callers that need per-recipient granularity iterate over
// doc.Recipients and call ClassifyRecipient on each.
func Classify(doc dsn.Document) Classification {
	if len(doc.Recipients) == 0 {
		return Classification{Type: Unknown, Reason: "no recipient outcomes in notification"}
	}
	return ClassifyRecipient(doc.Recipients[0])
}

// ClassifyRecipient classifies a single recipient outcome.
//
// The extended status code's leading digit is checked first: it is the
// standardized permanent/transient marker (RFC 3463), whereas the action
// word alone is unreliable across providers. Only when no status code is
// parsable does the action word decide.
func ClassifyRecipient(r dsn.Recipient) Classification {
	if m := statusPattern.FindStringSubmatch(strings.TrimSpace(r.Status)); m != nil {
		code := m[0]
		switch m[1] {
		case "5":
			return Classification{
				Type:           Hard,
				ShouldSuppress: true,
				Reason:         permanentReason(code),
			}
		case "4":
			return Classification{
				Type:   Soft,
				Reason: transientReason(code),
			}
		}
		// 2.x.x and 3.x.x codes are not bounce signals. Fall through to
		// the action word.
	}

	switch strings.ToLower(strings.TrimSpace(r.Action)) {
	case "failed":
		// Without a parsed 5.x.x code the signal is too weak to suppress:
		// the action word alone never adds an address to the list.
		return Classification{
			Type:   Hard,
			Reason: "permanent failure reported by remote MTA (no status code)",
		}
	case "delayed":
		return Classification{
			Type:   Soft,
			Reason: "delivery delayed, remote MTA will retry",
		}
	}

	return Classification{Type: Unknown, Reason: "no status code or recognized action"}
}

func permanentReason(code string) string {
	if text, ok := permanentReasons[code]; ok {
		return fmt.Sprintf("permanent failure: %s (%s)", text, code)
	}
	return fmt.Sprintf("permanent failure (%s)", code)
}

func transientReason(code string) string {
	if text, ok := transientReasons[code]; ok {
		return fmt.Sprintf("transient failure: %s (%s)", text, code)
	}
	return fmt.Sprintf("transient failure (%s)", code)
}
