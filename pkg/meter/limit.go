package meter

import (
	"strconv"
	"strings"
	"time"
)

// PolicyKind selects the read loop's termination policy.
type PolicyKind int

const (
	// PolicyCount stops after a fixed number of samples. A negative count
	// means run forever.
	PolicyCount PolicyKind = iota
	// PolicyDuration stops once the elapsed wall-clock time reaches the
	// duration.
	PolicyDuration
	// PolicyUntilIntegration stops when the integrator leaves the running
	// state.
	PolicyUntilIntegration
)

// Policy is the read loop's termination policy. Exactly one variant is
// active per invocation; selection is an input, not mutable state.
type Policy struct {
	Kind     PolicyKind
	Count    int
	Duration time.Duration
}

// Forever reports whether the policy never terminates on its own.
func (p Policy) Forever() bool {
	return p.Kind == PolicyCount && p.Count < 0
}

// CountPolicy stops after n samples.
func CountPolicy(n int) Policy {
	return Policy{Kind: PolicyCount, Count: n}
}

// ForeverPolicy runs until externally cancelled.
func ForeverPolicy() Policy {
	return Policy{Kind: PolicyCount, Count: -1}
}

// DurationPolicy stops after d of wall-clock time.
func DurationPolicy(d time.Duration) Policy {
	return Policy{Kind: PolicyDuration, Duration: d}
}

// UntilIntegrationPolicy stops when the integration ends.
func UntilIntegrationPolicy() Policy {
	return Policy{Kind: PolicyUntilIntegration}
}

// ParseLimit resolves a read-limit string: a non-negative integer sample
// count, -1 for unbounded, or a colon-separated duration in H:M:S or M:S
// form. Anything else is a usage error.
func ParseLimit(s string) (Policy, error) {
	if s == "-1" {
		return ForeverPolicy(), nil
	}

	if !strings.Contains(s, ":") {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Policy{}, &UsageError{Message: "limit must be a sample count, -1, or a H:M:S duration"}
		}
		return CountPolicy(n), nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return Policy{}, &UsageError{Message: "duration limit has at most three H:M:S fields"}
	}

	// Rightmost field is seconds, then minutes, then hours.
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Policy{}, &UsageError{Message: "duration limit fields must be non-negative integers"}
		}
		total = total*60 + n
	}

	return DurationPolicy(time.Duration(total) * time.Second), nil
}
