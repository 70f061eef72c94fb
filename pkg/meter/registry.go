// Package meter implements the instrument control core: the property
// registry, the command executor, the integration controller and the
// continuous read loop.
package meter

import "fmt"

// Device command vocabulary. Commands ending in '?' are queries; the
// instrument answers every command with a single line.
const (
	cmdIdentify     = "*IDN?"
	cmdFactoryReset = "*RST"
	cmdCalibrate    = "*CAL?"

	cmdIntegStart = ":INTEG:STAR"
	cmdIntegStop  = ":INTEG:STOP"
	cmdIntegReset = ":INTEG:RES"
	cmdIntegState = ":INTEG:STAT?"

	cmdItemCount  = ":NUM:NUM"    // argument: number of configured items
	cmdItemFormat = ":NUM:ITEM%d" // argument: data item code for slot %d
	cmdWaitUpdate = ":COMM:WAIT 1"
	cmdFetch      = ":NUM:VAL?"
)

// Property describes one user-facing instrument property and the device
// commands behind it. An empty Set command marks the property read-only.
type Property struct {
	Name string
	Get  string
	Set  string
	Help string
}

// ReadOnly reports whether the property can only be queried.
func (p Property) ReadOnly() bool {
	return p.Set == ""
}

var defaultProperties = []Property{
	{"voltage-range", ":VOLT:RANG?", ":VOLT:RANG", "Voltage range in volts (15, 30, 60, 150, 300, 600) or AUTO"},
	{"current-range", ":CURR:RANG?", ":CURR:RANG", "Current range in amperes (0.5, 1, 2, 5, 10, 20) or AUTO"},
	{"smoothing", ":MEAS:AVER?", ":MEAS:AVER", "Signal smoothing: on or off"},
	{"line-filter", ":INP:FILT?", ":INP:FILT", "Line filter: on or off"},
	{"wiring", ":INP:WIR?", ":INP:WIR", "Wiring system: P1W2, P1W3 or P3W3"},
	{"update-interval", ":RATE?", ":RATE", "Measurement update interval in milliseconds (100, 250, 500, 1000, 2000, 5000)"},
	{"integration-mode", ":INTEG:MODE?", ":INTEG:MODE", "Integration mode: normal or continuous"},
	{"integration-timer", ":INTEG:TIM?", ":INTEG:TIM", "Integration timer in seconds (0 disables the timer)"},
	{"model", cmdIdentify, "", "Instrument identification string"},
	{"error", ":STAT:ERR?", "", "Last fault reported by the instrument"},
}

// Registry is the immutable lookup table from property names to their
// device commands. It is built once at startup and shared read-only.
type Registry struct {
	props  []Property
	byName map[string]Property
}

// NewRegistry builds the registry from the built-in property table.
func NewRegistry() *Registry {
	return newRegistry(defaultProperties)
}

func newRegistry(props []Property) *Registry {
	byName := make(map[string]Property, len(props))
	for _, p := range props {
		byName[p.Name] = p
	}

	return &Registry{props: props, byName: byName}
}

// Lookup resolves a property name. Unknown names are a usage error.
func (r *Registry) Lookup(name string) (Property, error) {
	p, ok := r.byName[name]
	if !ok {
		return Property{}, &UsageError{Message: fmt.Sprintf("unknown property %q", name)}
	}
	return p, nil
}

// ForGet returns all properties, in declaration order.
func (r *Registry) ForGet() []Property {
	return r.props
}

// ForSet returns the settable properties, in declaration order.
func (r *Registry) ForSet() []Property {
	settable := make([]Property, 0, len(r.props))
	for _, p := range r.props {
		if !p.ReadOnly() {
			settable = append(settable, p)
		}
	}
	return settable
}
