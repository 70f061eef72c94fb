package meter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    Policy
		expectError bool
	}{
		{
			name:     "Unbounded count",
			input:    "-1",
			expected: ForeverPolicy(),
		},
		{
			name:     "Zero count",
			input:    "0",
			expected: CountPolicy(0),
		},
		{
			name:     "Finite count",
			input:    "25",
			expected: CountPolicy(25),
		},
		{
			name:     "Minutes and seconds",
			input:    "1:30",
			expected: DurationPolicy(90 * time.Second),
		},
		{
			name:     "Hours, minutes and seconds",
			input:    "1:1:05",
			expected: DurationPolicy(3665 * time.Second),
		},
		{
			name:     "Zero hours",
			input:    "0:1:05",
			expected: DurationPolicy(65 * time.Second),
		},
		{
			name:     "Zero duration",
			input:    "0:0",
			expected: DurationPolicy(0),
		},
		{
			name:        "Negative count",
			input:       "-2",
			expectError: true,
		},
		{
			name:        "Not a number",
			input:       "soon",
			expectError: true,
		},
		{
			name:        "Empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "Too many duration fields",
			input:       "1:2:3:4",
			expectError: true,
		},
		{
			name:        "Empty duration field",
			input:       "1::5",
			expectError: true,
		},
		{
			name:        "Negative duration field",
			input:       "1:-5",
			expectError: true,
		},
		{
			name:        "Fractional count",
			input:       "1.5",
			expectError: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			policy, err := ParseLimit(tc.input)
			if tc.expectError {
				assert.Error(t, err, "expected error for input: %s", tc.input)
				var usage *UsageError
				assert.ErrorAs(t, err, &usage)
			} else {
				assert.NoError(t, err, "unexpected error for input: %s", tc.input)
				assert.Equal(t, tc.expected, policy)
			}
		})
	}
}

func TestPolicyForever(t *testing.T) {
	assert.True(t, ForeverPolicy().Forever())
	assert.False(t, CountPolicy(0).Forever())
	assert.False(t, DurationPolicy(0).Forever())
	assert.False(t, UntilIntegrationPolicy().Forever())
}
