package transport

import (
	"bufio"
	"io"
	"net"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() log.FieldLogger {
	logger := log.New()
	logger.Out = io.Discard
	return logger
}

// fakeInstrument answers every command line with a canned response.
func fakeInstrument(t *testing.T, respond func(cmd string) string) net.Addr {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			conn.Write([]byte(respond(scanner.Text()) + "\n"))
		}
	}()

	return ln.Addr()
}

func TestTCPSend(t *testing.T) {
	addr := fakeInstrument(t, func(cmd string) string {
		if cmd == "*IDN?" {
			return "WATTCLI,WT-310,0,1.0"
		}
		return "OK"
	})

	tr, err := DialTCP(addr.String(), testLogger())
	require.NoError(t, err)
	defer tr.Close()

	resp, err := tr.Send("*IDN?")
	require.NoError(t, err)
	assert.Equal(t, "WATTCLI,WT-310,0,1.0", resp)

	resp, err = tr.Send(":INTEG:STAR")
	require.NoError(t, err)
	assert.Equal(t, "OK", resp)
}

func TestTCPSendTrimsResponse(t *testing.T) {
	addr := fakeInstrument(t, func(string) string { return "  42.5 " })

	tr, err := DialTCP(addr.String(), testLogger())
	require.NoError(t, err)
	defer tr.Close()

	resp, err := tr.Send(":RATE?")
	require.NoError(t, err)
	assert.Equal(t, "42.5", resp)
}

func TestDialTCPInvalidAddress(t *testing.T) {
	_, err := DialTCP("not-an-address", testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid device address")
}

func TestTCPSendAfterPeerClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	tr, err := DialTCP(ln.Addr().String(), testLogger())
	require.NoError(t, err)
	defer tr.Close()
	ln.Close()

	_, err = tr.Send("*IDN?")
	assert.Error(t, err)
}
