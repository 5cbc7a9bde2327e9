package assistant

import (
	"context"
	"fmt"

	"github.com/tridinhbui/finpartner-ai/internal/artifact"
)

// MockClient implements Client for testing. Each queued Exchange is
// consumed by one SendMessage call: its deliveries fire through the
// sink (optionally via Hook, so tests can interleave state changes
// mid-flight), then the reply or error is returned.
type MockClient struct {
	Exchanges []Exchange
	Calls     int
	resets    int
}

// Exchange scripts one boundary round trip.
type Exchange struct {
	Charts  []artifact.Chart
	Tables  []artifact.Table
	Metrics [][]artifact.HighlightedMetric
	Reply   string
	Err     error

	// Hook runs after the user text is received and before any delivery,
	// mimicking the user acting while the request is in flight.
	Hook func()
}

func (m *MockClient) SendMessage(_ context.Context, text string, _ *Attachment, sink UpdateSink) (string, error) {
	if m.Calls >= len(m.Exchanges) {
		return "", fmt.Errorf("unexpected SendMessage call %d (%q)", m.Calls, text)
	}
	ex := m.Exchanges[m.Calls]
	m.Calls++

	if ex.Hook != nil {
		ex.Hook()
	}
	if sink != nil {
		for _, chart := range ex.Charts {
			sink.OnChart(chart)
		}
		for _, table := range ex.Tables {
			sink.OnTable(table)
		}
		for _, set := range ex.Metrics {
			sink.OnMetrics(set)
		}
	}
	if ex.Err != nil {
		return "", ex.Err
	}
	return ex.Reply, nil
}

func (m *MockClient) Reset() {
	m.resets++
}

// Resets reports how many times the session was reset.
func (m *MockClient) Resets() int {
	return m.resets
}
