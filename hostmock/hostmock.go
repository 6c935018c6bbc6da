package hostmock

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnexpectedNamespace is returned when the namespace is not as expected.
	ErrUnexpectedNamespace = errors.New("unexpected namespace")

	// ErrUnexpectedCapability is returned when the capability is not as expected.
	ErrUnexpectedCapability = errors.New("unexpected capability")

	// ErrUnexpectedFunction is returned when the function is not as expected.
	ErrUnexpectedFunction = errors.New("unexpected function")

	// ErrOperationFailed is returned when Fail is set without a custom error.
	ErrOperationFailed = errors.New("operation failed")
)

// Route scripts the outcome of a single host function.
type Route struct {
	// PayloadValidator validates the payload passed to the function.
	PayloadValidator func([]byte) error

	// Response defines the bytes returned by the function.
	Response func() []byte

	// Error is returned alongside Response, which lets tests model a host that
	// reports a failure and still sends a status payload.
	Error error
}

// Config represents the configuration for creating a Mock instance.
type Config struct {
	// ExpectedNamespace defines the namespace expected in the host call.
	ExpectedNamespace string

	// ExpectedCapability defines the capability expected in the host call.
	ExpectedCapability string

	// ExpectedFunction defines the function name expected in the host call.
	// It is ignored when Routes is set.
	ExpectedFunction string

	// Error is the error to return if the mock is configured to fail.
	Error error

	// PayloadValidator validates the payload passed to the host call.
	PayloadValidator func([]byte) error

	// Response defines the response to return for the host call.
	Response func() []byte

	// Routes maps function names to scripted outcomes. Calls to functions
	// missing from a non-empty Routes fail with ErrUnexpectedFunction.
	Routes map[string]Route

	// Fail indicates whether the mock should return an error.
	Fail bool
}

// Call records one host invocation observed by the mock.
type Call struct {
	Namespace  string
	Capability string
	Function   string
	Payload    []byte
}

// Mock simulates the sidecar side of waPC host calls.
type Mock struct {
	cfg Config

	mu    sync.Mutex
	calls []Call
}

// New creates a new instance of the Mock based on the provided Config.
func New(config Config) (*Mock, error) {
	return &Mock{cfg: config}, nil
}

// Calls returns the invocations seen so far, oldest first.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// HostCall simulates a host call, validating inputs and returning a response or error.
func (m *Mock) HostCall(namespace, capability, function string, payload []byte) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{
		Namespace:  namespace,
		Capability: capability,
		Function:   function,
		Payload:    append([]byte(nil), payload...),
	})
	m.mu.Unlock()

	if m.cfg.Fail && m.cfg.Error != nil {
		return nil, m.cfg.Error
	}
	if m.cfg.Fail {
		return nil, ErrOperationFailed
	}

	if m.cfg.ExpectedNamespace != "" && m.cfg.ExpectedNamespace != namespace {
		return nil, fmt.Errorf(
			"%w: expected namespace %s, got %s",
			ErrUnexpectedNamespace,
			m.cfg.ExpectedNamespace,
			namespace,
		)
	}

	if m.cfg.ExpectedCapability != "" && m.cfg.ExpectedCapability != capability {
		return nil, fmt.Errorf(
			"%w: expected capability %s, got %s",
			ErrUnexpectedCapability,
			m.cfg.ExpectedCapability,
			capability,
		)
	}

	route, err := m.route(function)
	if err != nil {
		return nil, err
	}

	if route.PayloadValidator != nil {
		if err := route.PayloadValidator(payload); err != nil {
			return nil, err
		}
	}

	var resp []byte
	if route.Response != nil {
		resp = route.Response()
	}
	return resp, route.Error
}

// route resolves the scripted outcome for function.
func (m *Mock) route(function string) (Route, error) {
	if len(m.cfg.Routes) > 0 {
		r, ok := m.cfg.Routes[function]
		if !ok {
			return Route{}, fmt.Errorf("%w: no route for function %s", ErrUnexpectedFunction, function)
		}
		return r, nil
	}

	if m.cfg.ExpectedFunction != "" && m.cfg.ExpectedFunction != function {
		return Route{}, fmt.Errorf("%w: expected function %s, got %s", ErrUnexpectedFunction, m.cfg.ExpectedFunction, function)
	}
	return Route{PayloadValidator: m.cfg.PayloadValidator, Response: m.cfg.Response}, nil
}
