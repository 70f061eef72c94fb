package meter

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"wattcli/pkg/transport"
)

const faultPrefix = "ERR"

// Executor sends single device commands through the transport and
// normalizes failures into the typed error taxonomy. It never retries:
// every command is sent at most once per logical request.
type Executor struct {
	tr     transport.Transport
	logger log.FieldLogger
}

func NewExecutor(tr transport.Transport, logger log.FieldLogger) *Executor {
	return &Executor{
		tr:     tr,
		logger: logger.WithField("component", "executor"),
	}
}

// send issues one raw command and returns the instrument's response line.
// Transport failures become DeviceErrors; fault replies are returned as-is
// for the caller to classify.
func (e *Executor) send(cmd string) (string, error) {
	resp, err := e.tr.Send(cmd)
	if err != nil {
		return "", &DeviceError{Cmd: cmd, Err: err}
	}
	return resp, nil
}

// Execute sends one command and returns its response. A fault reply from
// the instrument is a DeviceError.
func (e *Executor) Execute(cmd string) (string, error) {
	resp, err := e.send(cmd)
	if err != nil {
		return "", err
	}

	if fault, ok := strings.CutPrefix(resp, faultPrefix); ok {
		return "", &DeviceError{Cmd: cmd, Err: fmt.Errorf("device fault:%s", fault)}
	}
	return resp, nil
}

// GetProperty queries the current value of a property.
func (e *Executor) GetProperty(p Property) (string, error) {
	return e.Execute(p.Get)
}

// SetProperty writes a new value to a settable property. The special value
// "?" is intercepted before reaching the device and returns the property's
// help text instead; the returned string is empty for a normal set. A
// read-only property or a value the instrument rejects is a BadArgumentError.
func (e *Executor) SetProperty(p Property, value string) (string, error) {
	if value == "?" {
		return p.Help, nil
	}

	if p.ReadOnly() {
		return "", &BadArgumentError{Property: p.Name, Value: value, Message: "property is read-only"}
	}

	cmd := p.Set + " " + value
	resp, err := e.send(cmd)
	if err != nil {
		return "", err
	}

	if fault, ok := strings.CutPrefix(resp, faultPrefix); ok {
		return "", &BadArgumentError{Property: p.Name, Value: value, Message: strings.TrimSpace(fault)}
	}

	e.logger.Debugf("Set %s = %s", p.Name, value)
	return "", nil
}

// Calibrate runs the instrument's zero-level calibration and returns its
// result code.
func (e *Executor) Calibrate() (string, error) {
	return e.Execute(cmdCalibrate)
}

// FactoryReset restores the instrument's factory settings.
func (e *Executor) FactoryReset() error {
	_, err := e.Execute(cmdFactoryReset)
	return err
}
