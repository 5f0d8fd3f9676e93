package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	testCases := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"plain http", "http://127.0.0.1:8000", false},
		{"https with path", "https://localhost:8000/view/readme.md", false},
		{"file scheme", "file:///etc/passwd", true},
		{"javascript scheme", "javascript:alert(1)", true},
		{"shell metacharacter", "http://localhost:8000/;rm%20-rf", true},
		{"embedded space", "http://localhost:8000/a b", true},
		{"backtick", "http://localhost:8000/`id`", true},
		{"missing host", "http:///view", true},
		{"empty", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateURL(tc.url)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateOrigin(t *testing.T) {
	allowed := []string{"preview.example.com", "https://docs.example.com"}

	testCases := []struct {
		name    string
		origin  string
		wantErr bool
	}{
		{"localhost", "http://localhost:8000", false},
		{"loopback v4", "http://127.0.0.1:3000", false},
		{"loopback v6", "http://[::1]:8000", false},
		{"allowed host", "https://preview.example.com", false},
		{"allowed full origin", "https://docs.example.com", false},
		{"unknown host", "https://evil.example.com", true},
		{"ftp scheme", "ftp://localhost", true},
		{"empty", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateOrigin(tc.origin, allowed)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
