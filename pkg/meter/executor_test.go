package meter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wattcli/pkg/simulator"
)

// failingTransport fails every request at the transport level.
type failingTransport struct{}

func (failingTransport) Send(cmd string) (string, error) {
	return "", errors.New("connection lost")
}

func (failingTransport) Close() error { return nil }

func newTestExecutor(t *testing.T) (*Executor, *simulator.Meter) {
	t.Helper()

	sim := simulator.New(testLogger())
	return NewExecutor(sim, testLogger()), sim
}

func TestExecutorGetProperty(t *testing.T) {
	exec, _ := newTestExecutor(t)
	reg := NewRegistry()

	p, err := reg.Lookup("voltage-range")
	require.NoError(t, err)

	value, err := exec.GetProperty(p)
	require.NoError(t, err)
	assert.Equal(t, "AUTO", value)
}

func TestExecutorSetProperty(t *testing.T) {
	exec, _ := newTestExecutor(t)
	reg := NewRegistry()

	p, err := reg.Lookup("smoothing")
	require.NoError(t, err)

	help, err := exec.SetProperty(p, "on")
	require.NoError(t, err)
	assert.Empty(t, help)

	value, err := exec.GetProperty(p)
	require.NoError(t, err)
	assert.Equal(t, "on", value)
}

func TestExecutorSetHelpEscape(t *testing.T) {
	exec, sim := newTestExecutor(t)
	reg := NewRegistry()

	p, err := reg.Lookup("voltage-range")
	require.NoError(t, err)

	help, err := exec.SetProperty(p, "?")
	require.NoError(t, err)
	assert.Equal(t, p.Help, help)

	// The help escape is intercepted before reaching the device.
	assert.Empty(t, sim.Journal)
}

func TestExecutorSetReadOnly(t *testing.T) {
	exec, sim := newTestExecutor(t)
	reg := NewRegistry()

	p, err := reg.Lookup("model")
	require.NoError(t, err)

	_, err = exec.SetProperty(p, "SIM-200")

	var badArg *BadArgumentError
	require.ErrorAs(t, err, &badArg)
	assert.Equal(t, "model", badArg.Property)
	assert.Empty(t, sim.Journal)
}

func TestExecutorSetRejectedValue(t *testing.T) {
	exec, _ := newTestExecutor(t)
	reg := NewRegistry()

	p, err := reg.Lookup("smoothing")
	require.NoError(t, err)

	_, err = exec.SetProperty(p, "maybe")

	var badArg *BadArgumentError
	require.ErrorAs(t, err, &badArg)
	assert.Equal(t, "maybe", badArg.Value)
}

func TestExecutorDeviceFault(t *testing.T) {
	exec, _ := newTestExecutor(t)

	_, err := exec.Execute(":NOPE?")

	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, ":NOPE?", devErr.Cmd)
}

func TestExecutorTransportFailure(t *testing.T) {
	exec := NewExecutor(failingTransport{}, testLogger())

	_, err := exec.Execute("*IDN?")

	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
}

func TestIsExpected(t *testing.T) {
	assert.True(t, IsExpected(&BadArgumentError{Message: "x"}))
	assert.True(t, IsExpected(&UsageError{Message: "x"}))
	assert.True(t, IsExpected(&ConfigError{Field: "port"}))
	assert.True(t, IsExpected(&DeviceError{Cmd: "*IDN?", Err: errors.New("x")}))
	assert.True(t, IsExpected(ErrInterrupted))
	assert.False(t, IsExpected(errors.New("unmodeled failure")))
	assert.False(t, IsExpected(nil))
}
