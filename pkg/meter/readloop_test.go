package meter

import (
	"context"
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wattcli/pkg/simulator"
)

func testLogger() log.FieldLogger {
	logger := log.New()
	logger.Out = io.Discard
	return logger
}

func newTestLoop(t *testing.T) (*ReadLoop, *simulator.Meter) {
	t.Helper()

	sim := simulator.New(testLogger())
	exec := NewExecutor(sim, testLogger())
	integ := NewIntegration(exec, testLogger())
	return NewReadLoop(exec, integ, testLogger()), sim
}

func countCommands(journal []string, cmd string) int {
	n := 0
	for _, c := range journal {
		if c == cmd {
			n++
		}
	}
	return n
}

func readItems(t *testing.T, names ...string) []DataItem {
	t.Helper()

	items := make([]DataItem, 0, len(names))
	for _, name := range names {
		item, err := LookupItem(name)
		require.NoError(t, err)
		items = append(items, item)
	}
	return items
}

func TestReadLoopCount(t *testing.T) {
	loop, sim := newTestLoop(t)

	var samples []string
	reason, err := loop.Run(context.Background(), readItems(t, "power", "current"), CountPolicy(5), func(s string) {
		samples = append(samples, s)
	})

	require.NoError(t, err)
	assert.Equal(t, ReasonCountReached, reason)
	assert.Len(t, samples, 5)

	// The count check runs before the blocking wait, so the loop must
	// never issue a 6th wait.
	assert.Equal(t, 5, countCommands(sim.Journal, ":COMM:WAIT 1"))
}

func TestReadLoopConfiguresItems(t *testing.T) {
	loop, sim := newTestLoop(t)

	_, err := loop.Run(context.Background(), readItems(t, "voltage", "current", "power"), CountPolicy(1), func(string) {})
	require.NoError(t, err)

	assert.Equal(t, []string{":NUM:ITEM1 U", ":NUM:ITEM2 I", ":NUM:ITEM3 P", ":NUM:NUM 3"}, sim.Journal[:4])
}

func TestReadLoopZeroDuration(t *testing.T) {
	loop, sim := newTestLoop(t)

	var samples []string
	reason, err := loop.Run(context.Background(), readItems(t, "power"), DurationPolicy(0), func(s string) {
		samples = append(samples, s)
	})

	require.NoError(t, err)
	assert.Equal(t, ReasonTimeElapsed, reason)
	assert.Empty(t, samples)
	assert.Zero(t, countCommands(sim.Journal, ":COMM:WAIT 1"))
}

func TestReadLoopUntilIntegrationEnds(t *testing.T) {
	loop, sim := newTestLoop(t)
	sim.StateScript = []string{"RUN", "RUN", "RUN", "STOP"}

	var samples []string
	reason, err := loop.Run(context.Background(), readItems(t, "energy"), UntilIntegrationPolicy(), func(s string) {
		samples = append(samples, s)
	})

	require.NoError(t, err)
	assert.Equal(t, ReasonIntegrationEnded, reason)
	assert.Len(t, samples, 3, "state is checked before each wait")
}

func TestReadLoopInterrupted(t *testing.T) {
	loop, _ := newTestLoop(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reason, err := loop.Run(ctx, readItems(t, "power"), ForeverPolicy(), func(string) {
		t.Fatal("no sample expected after cancellation")
	})

	require.NoError(t, err, "interruption is a clean termination, not a fault")
	assert.Equal(t, ReasonInterrupted, reason)
}

func TestReadLoopForeverIgnoresCount(t *testing.T) {
	loop, _ := newTestLoop(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	samples := 0
	go func() {
		// Give the loop time to take well past any finite count.
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	reason, err := loop.Run(ctx, readItems(t, "power"), ForeverPolicy(), func(string) {
		samples++
	})

	require.NoError(t, err)
	assert.Equal(t, ReasonInterrupted, reason)
	assert.Greater(t, samples, 1)
}
