package state

import (
	"strings"

	"github.com/layotto/go-sdk/metrics"
)

// instruments holds the metric handles of one client, keyed by host function.
type instruments struct {
	calls    map[string]*metrics.Counter
	failures map[string]*metrics.Counter
	inflight *metrics.Gauge
	payload  *metrics.Histogram
}

func newInstruments(m metrics.Client) (*instruments, error) {
	in := &instruments{
		calls:    make(map[string]*metrics.Counter),
		failures: make(map[string]*metrics.Counter),
	}

	for _, fn := range []string{fnGet, fnGetBulk, fnSave, fnDelete, fnDeleteBulk} {
		prefix := "state_" + strings.ToLower(fn)

		calls, err := m.NewCounter(prefix + "_total")
		if err != nil {
			return nil, err
		}
		failures, err := m.NewCounter(prefix + "_failures_total")
		if err != nil {
			return nil, err
		}
		in.calls[fn] = calls
		in.failures[fn] = failures
	}

	var err error
	if in.inflight, err = m.NewGauge("state_inflight_calls"); err != nil {
		return nil, err
	}
	if in.payload, err = m.NewHistogram("state_request_bytes"); err != nil {
		return nil, err
	}
	return in, nil
}
