// Package simulator provides an in-memory instrument that speaks the same
// command vocabulary as the real device. It backs the test suite and the
// --sim flag, so the tool runs without hardware on the bench.
package simulator

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

var defaultSettings = map[string]string{
	":VOLT:RANG":  "AUTO",
	":CURR:RANG":  "AUTO",
	":MEAS:AVER":  "off",
	":INP:FILT":   "off",
	":INP:WIR":    "P1W2",
	":RATE":       "250",
	":INTEG:MODE": "normal",
	":INTEG:TIM":  "0",
}

var validSettings = map[string][]string{
	":MEAS:AVER":  {"on", "off"},
	":INP:FILT":   {"on", "off"},
	":INP:WIR":    {"P1W2", "P1W3", "P3W3"},
	":INTEG:MODE": {"normal", "continuous"},
	":VOLT:RANG":  {"AUTO", "15", "30", "60", "150", "300", "600"},
	":CURR:RANG":  {"AUTO", "0.5", "1", "2", "5", "10", "20"},
	":RATE":       {"100", "250", "500", "1000", "2000", "5000"},
}

// Meter is a simulated power analyzer implementing transport.Transport.
// Every command it receives is appended to Journal, so tests can assert on
// the exact sequence the core issued.
type Meter struct {
	logger log.FieldLogger

	settings map[string]string
	items    map[int]string
	running  bool
	samples  int

	// StateScript, when non-empty, supplies the replies for successive
	// integrator state queries instead of the live running flag.
	StateScript []string

	Journal []string
}

func New(logger log.FieldLogger) *Meter {
	settings := make(map[string]string, len(defaultSettings))
	for k, v := range defaultSettings {
		settings[k] = v
	}

	return &Meter{
		logger:   logger.WithField("component", "simulator"),
		settings: settings,
		items:    make(map[int]string),
	}
}

func (m *Meter) Close() error { return nil }

// Send handles one command line the way the instrument firmware would.
func (m *Meter) Send(cmd string) (string, error) {
	m.Journal = append(m.Journal, cmd)
	m.logger.Debugf("Command: %s", cmd)

	switch cmd {
	case "*IDN?":
		return "WATTCLI,SIM-100,0,1.0", nil
	case "*RST":
		return m.reset(), nil
	case "*CAL?":
		return "0", nil
	case ":STAT:ERR?":
		return "none", nil
	case ":INTEG:STAR":
		m.running = true
		return "OK", nil
	case ":INTEG:STOP":
		m.running = false
		return "OK", nil
	case ":INTEG:RES":
		if m.running {
			return "ERR integrator is running", nil
		}
		return "OK", nil
	case ":INTEG:STAT?":
		return m.integState(), nil
	case ":COMM:WAIT 1":
		return "OK", nil
	case ":NUM:VAL?":
		return m.sample(), nil
	}

	verb, arg, hasArg := strings.Cut(cmd, " ")

	if strings.HasSuffix(verb, "?") {
		if value, ok := m.settings[strings.TrimSuffix(verb, "?")]; ok {
			return value, nil
		}
		return "ERR unknown command", nil
	}

	if !hasArg {
		return "ERR missing parameter", nil
	}

	if n, ok := itemSlot(verb); ok {
		m.items[n] = arg
		return "OK", nil
	}
	if verb == ":NUM:NUM" {
		return "OK", nil
	}

	if _, ok := m.settings[verb]; !ok {
		return "ERR unknown command", nil
	}
	if valid, ok := validSettings[verb]; ok && !contains(valid, arg) {
		return "ERR invalid parameter", nil
	}

	m.settings[verb] = arg
	return "OK", nil
}

func (m *Meter) reset() string {
	for k, v := range defaultSettings {
		m.settings[k] = v
	}
	m.items = make(map[int]string)
	m.running = false
	m.samples = 0
	return "OK"
}

func (m *Meter) integState() string {
	if len(m.StateScript) > 0 {
		state := m.StateScript[0]
		m.StateScript = m.StateScript[1:]
		return state
	}
	if m.running {
		return "RUN"
	}
	return "STOP"
}

// sample produces one comma-separated value line, one value per configured
// numeric slot, drifting slightly between updates.
func (m *Meter) sample() string {
	m.samples++

	count := len(m.items)
	if count == 0 {
		count = 1
	}

	values := make([]string, count)
	for i := range values {
		values[i] = fmt.Sprintf("%.3f", 100.0+float64(m.samples)+float64(i)/10)
	}
	return strings.Join(values, ",")
}

// itemSlot parses a ":NUM:ITEM<n>" verb.
func itemSlot(verb string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(verb, ":NUM:ITEM%d", &n); err != nil {
		return 0, false
	}
	return n, true
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
