package httpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.RetryAttempts)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: "timeout",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.RetryAttempts = -1 },
			wantErr: "retry_attempts",
		},
		{
			name:    "zero backoff with retries enabled",
			mutate:  func(c *Config) { c.RetryBackoff = 0 },
			wantErr: "retry_backoff",
		},
		{
			name:    "max backoff below base",
			mutate:  func(c *Config) { c.MaxBackoff = c.RetryBackoff / 2 },
			wantErr: "max_backoff",
		},
		{
			name:    "empty user agent",
			mutate:  func(c *Config) { c.UserAgent = "" },
			wantErr: "user_agent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidate_RetriesDisabledSkipsBackoffChecks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryAttempts = 0
	cfg.RetryBackoff = 0
	cfg.MaxBackoff = 0
	assert.NoError(t, cfg.Validate())
}
