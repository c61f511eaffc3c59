package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"a@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
		{"@example.com", "***@***"},
		{"user@", "***@***"},
		{"", "***@***"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactEmail(tt.in), "RedactEmail(%q)", tt.in)
	}
}

func TestRedactValue(t *testing.T) {
	assert.Equal(t, "us***@gmail.com", redactValue("email", "user1@gmail.com"))
	assert.Equal(t, "us***@gmail.com", redactValue("recipient", "user1@gmail.com"))
	assert.Equal(t, "bounce for jo***@example.com", redactValue("detail", "bounce for john@example.com"))
	assert.Equal(t, "gmail.com", redactValue("domain", "gmail.com"))
}
