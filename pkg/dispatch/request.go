// Package dispatch defines the shared command grammar and the dispatcher
// that executes parsed requests against the instrument. The local entry
// point and the remote session both feed token sequences through Parse, so
// there is exactly one grammar definition.
package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"wattcli/pkg/meter"
)

// Kind identifies the requested operation.
type Kind int

const (
	KindInfo Kind = iota
	KindRead
	KindGet
	KindSet
	KindIntegration
	KindSmoothing
	KindCalibrate
	KindFactoryReset
	KindListen
)

// Request is one structured command request, constructed per dispatch.
type Request struct {
	Kind     Kind
	Property string           // get/set/smoothing target
	Value    string           // set value, or "?" for help
	Items    []meter.DataItem // read item list
	Limit    meter.Policy     // read termination policy
	IntegOp  string           // integration sub-action
	Port     int              // listen port, -1 for the configured default
}

// Parse interprets a token sequence, tokenized exactly as process-start
// arguments would be, and returns a structured request.
func Parse(tokens []string) (Request, error) {
	if len(tokens) == 0 {
		return Request{}, &meter.UsageError{Message: "no command given"}
	}

	cmd, args := tokens[0], tokens[1:]

	switch cmd {
	case "info":
		if len(args) != 0 {
			return Request{}, &meter.UsageError{Message: "info takes no arguments"}
		}
		return Request{Kind: KindInfo}, nil

	case "read":
		return parseRead(args)

	case "get":
		if len(args) != 1 {
			return Request{}, &meter.UsageError{Message: "get <property>"}
		}
		return Request{Kind: KindGet, Property: args[0]}, nil

	case "set":
		switch len(args) {
		case 1:
			// A bare "set <property>" asks for the property's help text.
			return Request{Kind: KindSet, Property: args[0], Value: "?"}, nil
		case 2:
			return Request{Kind: KindSet, Property: args[0], Value: args[1]}, nil
		default:
			return Request{}, &meter.UsageError{Message: `set <property> [value|"?"]`}
		}

	case "integration":
		if len(args) != 1 {
			return Request{}, &meter.UsageError{Message: "integration {wait|start|stop|reset|state}"}
		}
		switch args[0] {
		case "wait", "start", "stop", "reset", "state":
			return Request{Kind: KindIntegration, IntegOp: args[0]}, nil
		}
		return Request{}, &meter.UsageError{Message: fmt.Sprintf("unknown integration action %q", args[0])}

	case "smoothing":
		if len(args) != 1 {
			return Request{}, &meter.UsageError{Message: `smoothing {on|off|"?"}`}
		}
		return Request{Kind: KindSmoothing, Property: "smoothing", Value: args[0]}, nil

	case "calibrate":
		if len(args) != 0 {
			return Request{}, &meter.UsageError{Message: "calibrate takes no arguments"}
		}
		return Request{Kind: KindCalibrate}, nil

	case "factory-reset":
		if len(args) != 0 {
			return Request{}, &meter.UsageError{Message: "factory-reset takes no arguments"}
		}
		return Request{Kind: KindFactoryReset}, nil

	case "listen":
		return parseListen(args)
	}

	return Request{}, &meter.UsageError{Message: fmt.Sprintf("unknown command %q", cmd)}
}

func parseRead(args []string) (Request, error) {
	req := Request{Kind: KindRead, Limit: meter.ForeverPolicy()}

	var itemArg string
	for i := 0; i < len(args); i++ {
		arg := args[i]

		limit, ok := flagValue(args, &i, "--limit")
		if ok {
			if limit == "" {
				return Request{}, &meter.UsageError{Message: "--limit requires a value"}
			}
			policy, err := meter.ParseLimit(limit)
			if err != nil {
				return Request{}, err
			}
			req.Limit = policy
			continue
		}

		if strings.HasPrefix(arg, "-") {
			return Request{}, &meter.UsageError{Message: fmt.Sprintf("unknown flag %q", arg)}
		}
		if itemArg != "" {
			return Request{}, &meter.UsageError{Message: "read takes a single comma-separated item list"}
		}
		itemArg = arg
	}

	if itemArg == "" {
		return Request{}, &meter.UsageError{Message: "read <items> [--limit L]"}
	}

	names := strings.Split(itemArg, ",")
	if len(names) > meter.MaxReadItems {
		return Request{}, &meter.UsageError{
			Message: fmt.Sprintf("at most %d data items per read", meter.MaxReadItems),
		}
	}

	for _, name := range names {
		item, err := meter.LookupItem(strings.TrimSpace(name))
		if err != nil {
			return Request{}, err
		}
		req.Items = append(req.Items, item)
	}

	return req, nil
}

func parseListen(args []string) (Request, error) {
	// An absent --port means "use the configured default"; an explicit
	// port, even 0, is validated as given.
	req := Request{Kind: KindListen, Port: -1}

	for i := 0; i < len(args); i++ {
		port, ok := flagValue(args, &i, "--port")
		if ok {
			n, err := strconv.Atoi(port)
			if err != nil {
				return Request{}, &meter.UsageError{Message: fmt.Sprintf("invalid port %q", port)}
			}
			req.Port = n
			continue
		}
		return Request{}, &meter.UsageError{Message: "listen [--port P]"}
	}

	return req, nil
}

// flagValue extracts the value of a "--flag value" or "--flag=value" pair
// starting at args[*i], advancing *i past a consumed value token.
func flagValue(args []string, i *int, flag string) (string, bool) {
	arg := args[*i]

	if arg == flag {
		if *i+1 < len(args) {
			*i++
			return args[*i], true
		}
		return "", true
	}

	if value, ok := strings.CutPrefix(arg, flag+"="); ok {
		return value, true
	}

	return "", false
}
