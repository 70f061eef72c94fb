package meter

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Reason explains why the read loop stopped.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonCountReached
	ReasonTimeElapsed
	ReasonIntegrationEnded
	ReasonInterrupted
)

func (r Reason) String() string {
	switch r {
	case ReasonCountReached:
		return "sample count reached"
	case ReasonTimeElapsed:
		return "time limit elapsed"
	case ReasonIntegrationEnded:
		return "integration ended"
	case ReasonInterrupted:
		return "interrupted"
	default:
		return "none"
	}
}

// ReadLoop repeatedly fetches one sample from the instrument, subject to a
// termination policy.
type ReadLoop struct {
	exec   *Executor
	integ  *Integration
	logger log.FieldLogger
}

func NewReadLoop(exec *Executor, integ *Integration, logger log.FieldLogger) *ReadLoop {
	return &ReadLoop{
		exec:   exec,
		integ:  integ,
		logger: logger.WithField("component", "readloop"),
	}
}

// configureItems assigns the requested data items to the instrument's
// numeric slots, ordinal 1..N, and sets the slot count.
func (r *ReadLoop) configureItems(items []DataItem) error {
	for n, item := range items {
		cmd := fmt.Sprintf(cmdItemFormat+" %s", n+1, item.Code)
		if _, err := r.exec.Execute(cmd); err != nil {
			return err
		}
	}

	_, err := r.exec.Execute(fmt.Sprintf("%s %d", cmdItemCount, len(items)))
	return err
}

// Run configures the instrument with the item list once, then samples until
// the policy terminates the loop. Termination checks run before the blocking
// wait for the next update, so a loop that should stop never performs one
// extra wait. Cancellation is a clean termination with ReasonInterrupted,
// not an error.
func (r *ReadLoop) Run(ctx context.Context, items []DataItem, policy Policy, onSample func(string)) (Reason, error) {
	if err := r.configureItems(items); err != nil {
		return ReasonNone, err
	}

	start := time.Now()
	samples := 0

	for {
		select {
		case <-ctx.Done():
			return ReasonInterrupted, nil
		default:
		}

		if policy.Kind == PolicyUntilIntegration {
			state, err := r.integ.State()
			if err != nil {
				return ReasonNone, err
			}
			if state != IntegrationRunning {
				return ReasonIntegrationEnded, nil
			}
		}

		if policy.Kind == PolicyDuration && time.Since(start) >= policy.Duration {
			return ReasonTimeElapsed, nil
		}

		if policy.Kind == PolicyCount && policy.Count >= 0 && samples >= policy.Count {
			return ReasonCountReached, nil
		}

		// Block until the instrument's next data update.
		if _, err := r.exec.Execute(cmdWaitUpdate); err != nil {
			if ctx.Err() != nil {
				return ReasonInterrupted, nil
			}
			return ReasonNone, err
		}

		values, err := r.exec.Execute(cmdFetch)
		if err != nil {
			return ReasonNone, err
		}

		onSample(values)
		samples++
	}
}
