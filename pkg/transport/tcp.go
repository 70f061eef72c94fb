package transport

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	dialTimeout    = 5 * time.Second
	requestTimeout = 3 * time.Second
)

// TCP talks to the instrument's ethernet port. Commands and responses are
// newline-framed text.
type TCP struct {
	conn   net.Conn
	reader *bufio.Reader
	logger log.FieldLogger
}

// DialTCP connects to the instrument at addr (host:port).
func DialTCP(addr string, logger log.FieldLogger) (*TCP, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return nil, fmt.Errorf("invalid device address %q: %v", addr, err)
	}

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device at %s: %v", addr, err)
	}

	logger.Infof("Connected to device at %s", addr)

	return &TCP{
		conn:   conn,
		reader: bufio.NewReader(conn),
		logger: logger.WithField("component", "tcp"),
	}, nil
}

func (t *TCP) Send(cmd string) (string, error) {
	t.logger.Debugf("Sending command: %s", cmd)

	if err := t.conn.SetDeadline(time.Now().Add(requestTimeout)); err != nil {
		return "", err
	}

	if _, err := fmt.Fprintf(t.conn, "%s\n", cmd); err != nil {
		return "", fmt.Errorf("write failed: %v", err)
	}

	line, err := t.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read failed: %v", err)
	}

	resp := strings.TrimSpace(line)
	t.logger.Debugf("Response: %s", resp)
	return resp, nil
}

func (t *TCP) Close() error {
	return t.conn.Close()
}
