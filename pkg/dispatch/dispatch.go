package dispatch

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"wattcli/pkg/meter"
)

// ListenFunc starts the remote session service. The dispatcher running
// inside a remote session carries a nil ListenFunc: a session cannot spawn
// another session in the same process.
type ListenFunc func(ctx context.Context, port int, sink io.Writer) error

// Dispatcher executes parsed requests against the instrument. Output meant
// for the operator is written to the sink passed per call; the remote
// session hands in the client connection, the local entry point its
// standard output.
type Dispatcher struct {
	Registry *meter.Registry
	Exec     *meter.Executor
	Integ    *meter.Integration
	Loop     *meter.ReadLoop
	Listen   ListenFunc
	Logger   log.FieldLogger
}

// WithoutListen returns a copy of the dispatcher that rejects the listen
// command as a usage error.
func (d *Dispatcher) WithoutListen() *Dispatcher {
	inner := *d
	inner.Listen = nil
	return &inner
}

// Run executes one request, writing operator-facing output to sink.
func (d *Dispatcher) Run(ctx context.Context, req Request, sink io.Writer) error {
	switch req.Kind {
	case KindInfo:
		return d.runInfo(sink)

	case KindRead:
		return d.runRead(ctx, req, sink)

	case KindGet:
		p, err := d.Registry.Lookup(req.Property)
		if err != nil {
			return err
		}
		value, err := d.Exec.GetProperty(p)
		if err != nil {
			return err
		}
		fmt.Fprintln(sink, value)
		return nil

	case KindSet, KindSmoothing:
		return d.runSet(req, sink)

	case KindIntegration:
		return d.runIntegration(ctx, req, sink)

	case KindCalibrate:
		result, err := d.Exec.Calibrate()
		if err != nil {
			return err
		}
		fmt.Fprintf(sink, "calibration result: %s\n", result)
		return nil

	case KindFactoryReset:
		if err := d.Exec.FactoryReset(); err != nil {
			return err
		}
		fmt.Fprintln(sink, "factory settings restored")
		return nil

	case KindListen:
		if d.Listen == nil {
			return &meter.UsageError{Message: "listen is not available inside a remote session"}
		}
		return d.Listen(ctx, req.Port, sink)
	}

	return &meter.UsageError{Message: "unknown command"}
}

func (d *Dispatcher) runInfo(sink io.Writer) error {
	for _, p := range d.Registry.ForGet() {
		value, err := d.Exec.GetProperty(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(sink, "%-18s %s\n", p.Name, value)
	}
	return nil
}

func (d *Dispatcher) runSet(req Request, sink io.Writer) error {
	p, err := d.Registry.Lookup(req.Property)
	if err != nil {
		return err
	}

	help, err := d.Exec.SetProperty(p, req.Value)
	if err != nil {
		return err
	}
	if help != "" {
		fmt.Fprintln(sink, help)
	}
	return nil
}

func (d *Dispatcher) runRead(ctx context.Context, req Request, sink io.Writer) error {
	reason, err := d.Loop.Run(ctx, req.Items, req.Limit, func(sample string) {
		fmt.Fprintln(sink, sample)
	})
	if err != nil {
		return err
	}

	d.Logger.Debugf("Read loop stopped: %s", reason)
	fmt.Fprintf(sink, "read stopped: %s\n", reason)
	return nil
}

func (d *Dispatcher) runIntegration(ctx context.Context, req Request, sink io.Writer) error {
	switch req.IntegOp {
	case "start":
		if err := d.Integ.Start(); err != nil {
			return err
		}
		fmt.Fprintln(sink, "integration started")
	case "stop":
		if err := d.Integ.Stop(); err != nil {
			return err
		}
		fmt.Fprintln(sink, "integration stopped")
	case "reset":
		if err := d.Integ.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(sink, "integration reset")
	case "state":
		state, err := d.Integ.State()
		if err != nil {
			return err
		}
		fmt.Fprintln(sink, state)
	case "wait":
		if err := d.Integ.Wait(ctx); err != nil {
			return err
		}
		fmt.Fprintln(sink, "integration ended")
	}
	return nil
}
