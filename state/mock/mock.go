package mock

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/layotto/go-sdk/state"
)

// Operation names used for per-call configuration and call records.
const (
	OpGet        = "GET"
	OpGetBulk    = "GETBULK"
	OpSave       = "SAVE"
	OpDelete     = "DELETE"
	OpDeleteBulk = "DELETEBULK"
)

// Config configures the mock client.
type Config struct {
	// StoreName is used when a call leaves the store name empty. Defaults to "mock".
	StoreName string

	// Seed pre-populates the default store. Seeded keys start at etag "1".
	Seed map[string][]byte
}

// Call records an operation performed against the mock.
type Call struct {
	Op    string
	Store string
	Key   string
	Value []byte
	Etag  string
}

type entry struct {
	value    []byte
	version  int
	metadata map[string]string
}

// Client implements state.Client in memory. Etags are decimal version numbers
// that grow by one with every write of a key.
type Client struct {
	defaultStore string

	mu     sync.Mutex
	stores map[string]map[string]entry
	errs   map[string]error
	calls  []Call
}

// Ensure Client satisfies the state.Client interface at compile time.
var _ state.Client = (*Client)(nil)

// New creates a new mock state client.
func New(cfg Config) *Client {
	store := cfg.StoreName
	if store == "" {
		store = "mock"
	}

	seeded := make(map[string]entry, len(cfg.Seed))
	for k, v := range cfg.Seed {
		seeded[k] = entry{value: append([]byte(nil), v...), version: 1}
	}

	return &Client{
		defaultStore: store,
		stores:       map[string]map[string]entry{store: seeded},
		errs:         make(map[string]error),
	}
}

// Fail makes every op call on key return err. An empty key applies to bulk
// operations, which have no single key.
func (m *Client) Fail(op, key string, err error) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[op+" "+key] = err
	return m
}

// Calls returns the operations performed so far, oldest first.
func (m *Client) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Get implements state.Client.
func (m *Client) Get(req state.GetRequest) (state.State[[]byte], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	store := m.store(req.StoreName)
	m.calls = append(m.calls, Call{Op: OpGet, Store: store, Key: req.Key})
	if req.Key == "" {
		return state.State[[]byte]{}, state.ErrInvalidKey
	}
	if err := m.errs[OpGet+" "+req.Key]; err != nil {
		return state.State[[]byte]{}, err
	}

	e, ok := m.stores[store][req.Key]
	if !ok {
		return state.State[[]byte]{}, state.ErrKeyNotFound
	}
	return e.record(req.Key), nil
}

// GetBulk implements state.Client. Missing keys come back as records without a value.
func (m *Client) GetBulk(req state.GetBulkRequest) ([]state.State[[]byte], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	store := m.store(req.StoreName)
	m.calls = append(m.calls, Call{Op: OpGetBulk, Store: store})
	if err := m.errs[OpGetBulk+" "]; err != nil {
		return nil, err
	}

	out := make([]state.State[[]byte], 0, len(req.Keys))
	for _, k := range req.Keys {
		if k == "" {
			return nil, state.ErrInvalidKey
		}
		if err := m.errs[OpGet+" "+k]; err != nil {
			out = append(out, state.NewError[[]byte](k, err.Error()))
			continue
		}
		e, ok := m.stores[store][k]
		if !ok {
			out = append(out, state.New[[]byte](k))
			continue
		}
		out = append(out, e.record(k))
	}
	return out, nil
}

// Save implements state.Client. All states are checked before any is written.
func (m *Client) Save(store string, states ...state.State[[]byte]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	store = m.store(store)
	if err := m.errs[OpSave+" "]; err != nil {
		return err
	}
	for _, s := range states {
		m.calls = append(m.calls, Call{Op: OpSave, Store: store, Key: s.Key(), Value: append([]byte(nil), s.Value()...), Etag: s.Etag()})
		if err := m.check(OpSave, store, s); err != nil {
			return err
		}
	}

	kv := m.bucket(store)
	for _, s := range states {
		e := kv[s.Key()]
		kv[s.Key()] = entry{
			value:    append([]byte(nil), s.Value()...),
			version:  e.version + 1,
			metadata: s.Metadata(),
		}
	}
	return nil
}

// Delete implements state.Client.
func (m *Client) Delete(store string, s state.State[[]byte]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	store = m.store(store)
	m.calls = append(m.calls, Call{Op: OpDelete, Store: store, Key: s.Key(), Etag: s.Etag()})
	if err := m.check(OpDelete, store, s); err != nil {
		return err
	}
	delete(m.stores[store], s.Key())
	return nil
}

// DeleteBulk implements state.Client. All states are checked before any is removed.
func (m *Client) DeleteBulk(store string, states ...state.State[[]byte]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	store = m.store(store)
	if err := m.errs[OpDeleteBulk+" "]; err != nil {
		return err
	}
	for _, s := range states {
		m.calls = append(m.calls, Call{Op: OpDeleteBulk, Store: store, Key: s.Key(), Etag: s.Etag()})
		if err := m.check(OpDelete, store, s); err != nil {
			return err
		}
	}
	for _, s := range states {
		delete(m.stores[store], s.Key())
	}
	return nil
}

// Close implements state.Client.
func (m *Client) Close() error { return nil }

func (m *Client) store(name string) string {
	if name == "" {
		return m.defaultStore
	}
	return name
}

func (m *Client) bucket(store string) map[string]entry {
	kv, ok := m.stores[store]
	if !ok {
		kv = make(map[string]entry)
		m.stores[store] = kv
	}
	return kv
}

// check validates s for a write or delete, applying the etag rules of its options.
func (m *Client) check(op, store string, s state.State[[]byte]) error {
	if s.Key() == "" {
		return state.ErrInvalidKey
	}
	if err := m.errs[op+" "+s.Key()]; err != nil {
		return err
	}

	e, exists := m.stores[store][s.Key()]
	switch {
	case s.Etag() != "":
		if !exists || strconv.Itoa(e.version) != s.Etag() {
			return fmt.Errorf("%w: key %s", state.ErrEtagMismatch, s.Key())
		}
	case exists && firstWrite(s):
		return fmt.Errorf("%w: key %s requires an etag", state.ErrEtagMismatch, s.Key())
	}
	return nil
}

func firstWrite(s state.State[[]byte]) bool {
	opts := s.Options()
	return opts != nil && opts.Concurrency == state.ConcurrencyFirstWrite
}

func (e entry) record(key string) state.State[[]byte] {
	return state.NewWithMetadata(key, append([]byte(nil), e.value...), strconv.Itoa(e.version), e.metadata, nil)
}

// ErrExample is a sentinel error to help tests customize failures.
var ErrExample = fmt.Errorf("state mock example error")
