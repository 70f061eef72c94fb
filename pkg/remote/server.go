// Package remote exposes the command vocabulary over a TCP socket. A
// remote caller sends one whitespace-tokenized request per line and the
// results stream back as plain text, exactly as the local command line
// would print them.
package remote

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"

	log "github.com/sirupsen/logrus"

	"wattcli/pkg/dispatch"
	"wattcli/pkg/meter"
)

// DefaultPort is the listening port used when none is configured.
const DefaultPort = 10024

// Server owns one listening socket and serves one client at a time. The
// instrument is a single exclusively-owned resource, so requests from
// successive clients are strictly sequential by construction.
type Server struct {
	ln     net.Listener
	disp   *dispatch.Dispatcher
	logger log.FieldLogger

	// handle processes one request line. Tests replace it to exercise
	// failure paths the dispatcher cannot produce.
	handle func(ctx context.Context, tokens []string, conn net.Conn) error
}

// New validates the port and opens the listening socket. The socket is
// created once and never recreated for the life of the process.
func New(port int, disp *dispatch.Dispatcher, logger log.FieldLogger) (*Server, error) {
	if port < 1 || port > 65535 {
		return nil, &meter.ConfigError{Field: "port", Value: port, Message: "must be between 1 and 65535"}
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, &meter.ConfigError{Field: "port", Value: port, Message: err.Error()}
	}

	s := &Server{
		ln: ln,
		// A session cannot spawn another session on this process.
		disp:   disp.WithoutListen(),
		logger: logger.WithField("component", "remote"),
	}
	s.handle = s.handleRequest
	return s, nil
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts clients sequentially until the context is cancelled or an
// unexpected failure surfaces. A failure in the expected taxonomy drops
// only the offending client; anything else is a defect and terminates the
// whole service.
func (s *Server) Serve(ctx context.Context) error {
	defer s.ln.Close()

	// Shut the listener down when the context expires.
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	s.logger.Infof("Listening on %s", s.ln.Addr())

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.logger.Infof("Client connected: %s", conn.RemoteAddr())

		if err := s.serveClient(ctx, conn); err != nil {
			return err
		}

		s.logger.Infof("Client disconnected: %s", conn.RemoteAddr())
	}
}

// serveClient reads requests line by line until the client goes away. The
// returned error is nil for every modeled failure; a non-nil return is an
// unmodeled defect that must stop the service.
func (s *Server) serveClient(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}

		s.logger.Debugf("Request: %s", strings.Join(tokens, " "))

		if err := s.handle(ctx, tokens, conn); err != nil {
			fmt.Fprintf(conn, "error: %v\n", err)

			if meter.IsExpected(err) {
				s.logger.Warnf("Dropping client after error: %v", err)
				return nil
			}
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		// A broken connection only costs this client its session.
		s.logger.Warnf("Client read failed: %v", err)
	}
	return nil
}

// handleRequest replays one request line through the same dispatch path
// the local command line uses, with output routed to the client.
func (s *Server) handleRequest(ctx context.Context, tokens []string, conn net.Conn) error {
	req, err := dispatch.Parse(tokens)
	if err != nil {
		return err
	}
	return s.disp.Run(ctx, req, conn)
}
