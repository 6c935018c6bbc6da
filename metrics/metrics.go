package metrics

import (
	"errors"
	"regexp"

	sdk "github.com/layotto/go-sdk"
	"github.com/layotto/go-sdk/codec"
	proto "github.com/tarmac-project/protobuf-go/sdk/metrics"
	wapc "github.com/wapc/wapc-guest-tinygo"
)

const (
	capabilityName = "metrics"
	fnCounter      = "counter"
	fnGauge        = "gauge"
	fnHistogram    = "histogram"
	actionInc      = "inc"
	actionDec      = "dec"
)

var (
	// ErrInvalidMetricName indicates a metric name that does not match the supported format.
	ErrInvalidMetricName = errors.New("metric name is invalid")

	validName = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)
)

// HostCall defines the waPC host function signature used by metrics operations.
type HostCall func(string, string, string, []byte) ([]byte, error)

// Client creates metric handles reported to the sidecar.
type Client interface {
	NewCounter(name string) (*Counter, error)
	NewGauge(name string) (*Gauge, error)
	NewHistogram(name string) (*Histogram, error)
}

// Config controls how a Client instance interacts with the host runtime.
type Config struct {
	// SDKConfig provides the runtime namespace used for host calls.
	SDKConfig sdk.RuntimeConfig

	// HostCall overrides the waPC host function used for metrics operations.
	HostCall HostCall
}

// HostMetrics is the metrics capability client implementation.
type HostMetrics struct {
	namespace string
	hostCall  HostCall
}

var _ Client = (*HostMetrics)(nil)

// New creates a metrics client with namespace defaults and optional host-call override.
func New(config Config) (*HostMetrics, error) {
	ns := config.SDKConfig.Namespace
	if ns == "" {
		ns = sdk.DefaultNamespace
	}

	hostCall := config.HostCall
	if hostCall == nil {
		hostCall = wapc.HostCall
	}

	return &HostMetrics{namespace: ns, hostCall: hostCall}, nil
}

// Nop returns a client whose handles discard every update.
func Nop() *HostMetrics {
	return &HostMetrics{hostCall: func(string, string, string, []byte) ([]byte, error) { return nil, nil }}
}

// emitter sends one metric update. Updates are best effort: encoding and host
// failures are dropped.
type emitter struct {
	namespace string
	hostCall  HostCall
}

func (e emitter) emit(fn string, msg codec.Marshaler) {
	payload, err := codec.Serialize(msg)
	if err != nil {
		return
	}
	_, _ = e.hostCall(e.namespace, capabilityName, fn, payload)
}

func (c *HostMetrics) emitter(name string) (emitter, error) {
	if !validName.MatchString(name) {
		return emitter{}, ErrInvalidMetricName
	}
	return emitter{namespace: c.namespace, hostCall: c.hostCall}, nil
}

// Counter is a monotonically increasing metric.
type Counter struct {
	name string
	emitter
}

// NewCounter creates a named counter.
func (c *HostMetrics) NewCounter(name string) (*Counter, error) {
	e, err := c.emitter(name)
	if err != nil {
		return nil, err
	}
	return &Counter{name: name, emitter: e}, nil
}

// Inc increments the counter by one.
func (c *Counter) Inc() {
	c.emit(fnCounter, &proto.MetricsCounter{Name: c.name})
}

// Gauge is a metric that moves up and down.
type Gauge struct {
	name string
	emitter
}

// NewGauge creates a named gauge.
func (c *HostMetrics) NewGauge(name string) (*Gauge, error) {
	e, err := c.emitter(name)
	if err != nil {
		return nil, err
	}
	return &Gauge{name: name, emitter: e}, nil
}

// Inc raises the gauge by one.
func (g *Gauge) Inc() {
	g.emit(fnGauge, &proto.MetricsGauge{Name: g.name, Action: actionInc})
}

// Dec lowers the gauge by one.
func (g *Gauge) Dec() {
	g.emit(fnGauge, &proto.MetricsGauge{Name: g.name, Action: actionDec})
}

// Histogram records a distribution of observed values.
type Histogram struct {
	name string
	emitter
}

// NewHistogram creates a named histogram.
func (c *HostMetrics) NewHistogram(name string) (*Histogram, error) {
	e, err := c.emitter(name)
	if err != nil {
		return nil, err
	}
	return &Histogram{name: name, emitter: e}, nil
}

// Observe records value.
func (h *Histogram) Observe(value float64) {
	h.emit(fnHistogram, &proto.MetricsHistogram{Name: h.name, Value: value})
}
