// Package transport provides the request/response byte channel to the
// instrument. Every device command is a single text line; the instrument
// answers every command with a single text line (a value, "OK", or an
// "ERR ..." fault report).
package transport

// Transport is a synchronous request/response channel to the instrument.
// Send issues exactly one command and blocks until the instrument answers
// or the transport's own request timeout expires.
type Transport interface {
	Send(cmd string) (string, error)
	Close() error
}
