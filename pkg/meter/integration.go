package meter

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// IntegrationState is the instrument-side state of the integrator. It is a
// live property of the device and is queried before every decision that
// depends on it, never cached.
type IntegrationState int

const (
	IntegrationStopped IntegrationState = iota
	IntegrationRunning
)

func (s IntegrationState) String() string {
	if s == IntegrationRunning {
		return "running"
	}
	return "stopped"
}

// parseIntegrationState maps the instrument's state reply. The instrument
// reports RUN while integrating; RES, STOP and TIMEUP are all inactive.
func parseIntegrationState(resp string) (IntegrationState, error) {
	switch resp {
	case "RUN":
		return IntegrationRunning, nil
	case "RES", "STOP", "TIMEUP":
		return IntegrationStopped, nil
	default:
		return IntegrationStopped, &DeviceError{Cmd: cmdIntegState, Err: fmt.Errorf("unexpected state %q", resp)}
	}
}

// Integration sequences the integrator sub-actions against device state.
// The instrument rejects a reset while integrating, so Reset always checks
// the live state and stops a running integration first.
type Integration struct {
	exec         *Executor
	logger       log.FieldLogger
	pollInterval time.Duration
}

func NewIntegration(exec *Executor, logger log.FieldLogger) *Integration {
	return &Integration{
		exec:         exec,
		logger:       logger.WithField("component", "integration"),
		pollInterval: time.Second,
	}
}

func (i *Integration) Start() error {
	_, err := i.exec.Execute(cmdIntegStart)
	return err
}

func (i *Integration) Stop() error {
	_, err := i.exec.Execute(cmdIntegStop)
	return err
}

// Reset returns the integrator to its initial state. A running integration
// is stopped first; callers never need to make that check themselves.
func (i *Integration) Reset() error {
	state, err := i.State()
	if err != nil {
		return err
	}

	if state == IntegrationRunning {
		i.logger.Debug("Integration running, stopping before reset")
		if err := i.Stop(); err != nil {
			return err
		}
	}

	_, err = i.exec.Execute(cmdIntegReset)
	return err
}

// State queries the live integrator state.
func (i *Integration) State() (IntegrationState, error) {
	resp, err := i.exec.Execute(cmdIntegState)
	if err != nil {
		return IntegrationStopped, err
	}
	return parseIntegrationState(resp)
}

// Wait blocks until the integrator leaves the running state, polling at a
// fixed interval. The transport's request timeout is too short to hold a
// request open for a full integration, so this is a coarse poll rather
// than a device-side wait. Cancelling the context returns ErrInterrupted.
func (i *Integration) Wait(ctx context.Context) error {
	for {
		state, err := i.State()
		if err != nil {
			return err
		}
		if state != IntegrationRunning {
			return nil
		}

		select {
		case <-ctx.Done():
			return ErrInterrupted
		case <-time.After(i.pollInterval):
		}
	}
}
