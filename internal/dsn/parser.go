// Package dsn parses delivery status notifications (RFC 3464) into
// structured per-recipient outcomes.
//
// The parser is deliberately forgiving: DSNs arrive from many remote MTAs
// with varying degrees of standards compliance, so any text that cannot
// be recognized simply degrades to fewer (or zero) recipient entries.
// Parse never fails.
package dsn

import (
	"bufio"
	"strings"
)

// Document is the parsed form of one delivery status notification.
type Document struct {
	// ReportingMTA and ArrivalDate come from the message-level header
	// block, when present.
	ReportingMTA string `json:"reporting_mta,omitempty"`
	ArrivalDate  string `json:"arrival_date,omitempty"`

	// Recipients holds one entry per recognized per-recipient block, in
	// document order. Callers report bounces per recipient in the order
	// received, so order is preserved.
	Recipients []Recipient `json:"recipients"`
}

// Recipient is the outcome reported for a single final recipient.
type Recipient struct {
	FinalRecipient string `json:"final_recipient"`
	Action         string `json:"action,omitempty"`
	Status         string `json:"status,omitempty"`
	// DiagnosticCode is free text from the remote MTA. When the DSN
	// carries a Will-Retry-Until line it is folded in here as a
	// "will-retry-until: …" token, so downstream consumers only need to
	// inspect one field for retry hints.
	DiagnosticCode  string `json:"diagnostic_code,omitempty"`
	RemoteMTA       string `json:"remote_mta,omitempty"`
	LastAttemptDate string `json:"last_attempt_date,omitempty"`
}

// Field vocabulary, matched case-insensitively. Anything else is ignored.
const (
	fieldFinalRecipient  = "final-recipient"
	fieldAction          = "action"
	fieldStatus          = "status"
	fieldDiagnosticCode  = "diagnostic-code"
	fieldRemoteMTA       = "remote-mta"
	fieldLastAttemptDate = "last-attempt-date"
	fieldWillRetryUntil  = "will-retry-until"
	fieldReportingMTA    = "reporting-mta"
	fieldArrivalDate     = "arrival-date"
)

// Parse converts raw DSN text into a Document. It never fails: malformed
// or unrecognizable input yields a Document with zero recipients and
// whatever header fields could be salvaged.
func Parse(raw string) Document {
	var doc Document

	for _, block := range splitBlocks(raw) {
		fields := parseFields(block)

		rcpt, ok := fields[fieldFinalRecipient]
		if !ok || rcpt == "" {
			// Not a per-recipient block. Header fields are only taken
			// from text before the first recipient block.
			if len(doc.Recipients) == 0 {
				if doc.ReportingMTA == "" {
					doc.ReportingMTA = fields[fieldReportingMTA]
				}
				if doc.ArrivalDate == "" {
					doc.ArrivalDate = fields[fieldArrivalDate]
				}
			}
			continue
		}

		r := Recipient{
			FinalRecipient:  rcpt,
			Action:          fields[fieldAction],
			Status:          fields[fieldStatus],
			DiagnosticCode:  fields[fieldDiagnosticCode],
			RemoteMTA:       fields[fieldRemoteMTA],
			LastAttemptDate: fields[fieldLastAttemptDate],
		}
		if retry := fields[fieldWillRetryUntil]; retry != "" {
			if r.DiagnosticCode != "" {
				r.DiagnosticCode += "; "
			}
			r.DiagnosticCode += "will-retry-until: " + retry
		}
		doc.Recipients = append(doc.Recipients, r)
	}

	return doc
}

// splitBlocks splits the input on blank-line boundaries.
func splitBlocks(raw string) [][]string {
	var blocks [][]string
	var current []string

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

// parseFields extracts recognized "Key: value" lines from a block. Keys
// are matched case-insensitively; unrecognized lines are skipped.
func parseFields(lines []string) map[string]string {
	fields := make(map[string]string)
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case fieldFinalRecipient:
			fields[key] = stripAddressType(value)
		case fieldAction, fieldStatus, fieldDiagnosticCode, fieldRemoteMTA,
			fieldLastAttemptDate, fieldWillRetryUntil,
			fieldReportingMTA, fieldArrivalDate:
			fields[key] = value
		}
	}
	return fields
}

// stripAddressType removes the "rfc822;" address-type prefix from a
// Final-Recipient value, leaving only the address.
func stripAddressType(value string) string {
	if scheme, addr, ok := strings.Cut(value, ";"); ok {
		if strings.EqualFold(strings.TrimSpace(scheme), "rfc822") {
			return strings.TrimSpace(addr)
		}
	}
	return value
}
