package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"minh@gmail.com", "m***@gmail.com"},
		{"m@example.com", "m***@example.com"},
		{"đức.nguyen@fpt.edu.vn", "đ***@fpt.edu.vn"},
		{"", ""},
		{"not-an-address", "***"},
		{"@domain.com", "***@domain.com"},
		{"user@sub@domain.com", "u***@sub@domain.com"},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, RedactEmail(tc.input))
		})
	}
}
