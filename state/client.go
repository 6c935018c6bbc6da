package state

import (
	"errors"
	"fmt"

	sdk "github.com/layotto/go-sdk"
	"github.com/layotto/go-sdk/codec"
	"github.com/layotto/go-sdk/internal/statepb"
	"github.com/layotto/go-sdk/logging"
	"github.com/layotto/go-sdk/metrics"
	sdkproto "github.com/tarmac-project/protobuf-go/sdk"
	wapc "github.com/wapc/wapc-guest-tinygo"
)

const (
	capabilityName = "state"
	fnGet          = "get"
	fnGetBulk      = "getBulk"
	fnSave         = "save"
	fnDelete       = "delete"
	fnDeleteBulk   = "deleteBulk"

	hostStatusOK       = int32(200)
	hostStatusPartial  = int32(206)
	hostStatusBadInput = int32(400)
	hostStatusMissing  = int32(404)
	hostStatusConflict = int32(409)
	hostStatusError    = int32(500)
)

var (
	// ErrInvalidKey indicates an empty state key.
	ErrInvalidKey = errors.New("key is invalid")

	// ErrInvalidStoreName indicates that neither the request nor the runtime config names a store.
	ErrInvalidStoreName = errors.New("store name is invalid")

	// ErrKeyNotFound is returned when the store holds nothing under the key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrEtagMismatch is returned when a write or delete carries an outdated etag.
	ErrEtagMismatch = errors.New("etag mismatch")

	// ErrMarshalRequest wraps failures while encoding the request payload.
	ErrMarshalRequest = errors.New("failed to marshal request")

	// ErrUnmarshalResponse wraps failures while decoding the host response.
	ErrUnmarshalResponse = errors.New("failed to unmarshal response")
)

// HostCall defines the waPC host function signature used by state operations.
type HostCall func(string, string, string, []byte) ([]byte, error)

// Client defines the state capability interface.
type Client interface {
	// Get reads a single key. A key without data yields a record with no value.
	Get(req GetRequest) (State[[]byte], error)

	// GetBulk reads several keys. Keys the store failed to read come back as error records.
	GetBulk(req GetBulkRequest) ([]State[[]byte], error)

	// Save writes states to store.
	Save(store string, states ...State[[]byte]) error

	// Delete removes the key of s, guarded by its etag and options.
	Delete(store string, s State[[]byte]) error

	// DeleteBulk removes the keys of states.
	DeleteBulk(store string, states ...State[[]byte]) error

	// Close releases resources held by the client.
	Close() error
}

// GetRequest describes a single-key read. An empty StoreName uses the runtime default.
type GetRequest struct {
	StoreName   string
	Key         string
	Consistency Consistency
	Metadata    map[string]string
}

// GetBulkRequest describes a multi-key read. An empty StoreName uses the runtime default.
type GetBulkRequest struct {
	StoreName string
	Keys      []string
	// Parallelism caps how many keys the sidecar reads concurrently; 0 leaves it to the sidecar.
	Parallelism int32
	Metadata    map[string]string
}

// Config controls how a Client instance interacts with the host runtime.
type Config struct {
	// SDKConfig provides the runtime namespace and default store used for host calls.
	SDKConfig sdk.RuntimeConfig

	// HostCall overrides the waPC host function used for state operations.
	HostCall HostCall

	// Logger receives operation traces. Defaults to logging.Nop.
	Logger logging.Client

	// Metrics receives per-operation call, failure and payload-size metrics.
	// Defaults to metrics.Nop.
	Metrics metrics.Client

	// Codec encodes requests and decodes responses. Defaults to codec.Default.
	Codec *codec.Codec
}

// HostClient is the state capability client implementation.
type HostClient struct {
	runtime  sdk.RuntimeConfig
	hostCall HostCall
	log      logging.Client
	codec    *codec.Codec
	stats    *instruments
}

// Ensure HostClient satisfies the Client interface at compile time.
var _ Client = (*HostClient)(nil)

// statusResponse is implemented by every state capability response.
type statusResponse interface {
	GetStatus() *sdkproto.Status
}

// NewClient creates a state client with namespace defaults and optional overrides.
func NewClient(config Config) (*HostClient, error) {
	runtime := config.SDKConfig
	if runtime.Namespace == "" {
		runtime.Namespace = sdk.DefaultNamespace
	}

	hostCall := config.HostCall
	if hostCall == nil {
		hostCall = wapc.HostCall
	}

	log := config.Logger
	if log == nil {
		log = logging.Nop()
	}

	m := config.Metrics
	if m == nil {
		m = metrics.Nop()
	}
	stats, err := newInstruments(m)
	if err != nil {
		return nil, err
	}

	cdc := config.Codec
	if cdc == nil {
		cdc = codec.Default()
	}

	return &HostClient{runtime: runtime, hostCall: hostCall, log: log, codec: cdc, stats: stats}, nil
}

// Get reads a single key.
func (c *HostClient) Get(req GetRequest) (State[[]byte], error) {
	store, err := c.storeName(req.StoreName)
	if err != nil {
		return State[[]byte]{}, err
	}
	if req.Key == "" {
		return State[[]byte]{}, ErrInvalidKey
	}

	c.log.Debug("state get", "store", store, "key", req.Key)
	resp, err := call[*statepb.GetStateResponse](c, fnGet, &statepb.GetStateRequest{
		StoreName:   store,
		Key:         req.Key,
		Consistency: int32(req.Consistency),
		Metadata:    req.Metadata,
	})
	if err != nil {
		c.failed(fnGet, store, req.Key, err)
		return State[[]byte]{}, err
	}

	return fromItem(req.Key, resp.Data, resp.Etag, resp.Metadata), nil
}

// GetBulk reads several keys in one host call. Results follow the order returned by the sidecar.
func (c *HostClient) GetBulk(req GetBulkRequest) ([]State[[]byte], error) {
	store, err := c.storeName(req.StoreName)
	if err != nil {
		return nil, err
	}
	if len(req.Keys) == 0 {
		return nil, nil
	}
	for _, k := range req.Keys {
		if k == "" {
			return nil, ErrInvalidKey
		}
	}

	c.log.Debug("state get bulk", "store", store, "keys", len(req.Keys))
	resp, err := call[*statepb.GetBulkStateResponse](c, fnGetBulk, &statepb.GetBulkStateRequest{
		StoreName:   store,
		Keys:        req.Keys,
		Parallelism: req.Parallelism,
		Metadata:    req.Metadata,
	})
	if err != nil {
		c.failed(fnGetBulk, store, "", err)
		return nil, err
	}

	out := make([]State[[]byte], 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Error != "" {
			out = append(out, NewError[[]byte](item.Key, item.Error))
			continue
		}
		out = append(out, fromItem(item.Key, item.Data, item.Etag, item.Metadata))
	}
	return out, nil
}

// Save writes states to store in one host call. Saving nothing is a no-op.
func (c *HostClient) Save(store string, states ...State[[]byte]) error {
	store, err := c.storeName(store)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return nil
	}

	items, err := toItems(states)
	if err != nil {
		return err
	}

	c.log.Debug("state save", "store", store, "states", len(items))
	if _, err := call[*statepb.StatusResponse](c, fnSave, &statepb.SaveStateRequest{StoreName: store, States: items}); err != nil {
		c.failed(fnSave, store, "", err)
		return err
	}
	return nil
}

// Delete removes the key of s from store.
func (c *HostClient) Delete(store string, s State[[]byte]) error {
	store, err := c.storeName(store)
	if err != nil {
		return err
	}
	if s.key == "" {
		return ErrInvalidKey
	}

	c.log.Debug("state delete", "store", store, "key", s.key)
	_, err = call[*statepb.StatusResponse](c, fnDelete, &statepb.DeleteStateRequest{
		StoreName: store,
		Key:       s.key,
		Etag:      s.etag,
		Options:   s.options.toProto(),
		Metadata:  s.metadata,
	})
	if err != nil {
		c.failed(fnDelete, store, s.key, err)
		return err
	}
	return nil
}

// DeleteBulk removes the keys of states from store in one host call.
func (c *HostClient) DeleteBulk(store string, states ...State[[]byte]) error {
	store, err := c.storeName(store)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return nil
	}

	items, err := toItems(states)
	if err != nil {
		return err
	}

	c.log.Debug("state delete bulk", "store", store, "states", len(items))
	if _, err := call[*statepb.StatusResponse](c, fnDeleteBulk, &statepb.DeleteBulkStateRequest{StoreName: store, States: items}); err != nil {
		c.failed(fnDeleteBulk, store, "", err)
		return err
	}
	return nil
}

// Close releases resources held by the client.
func (c *HostClient) Close() error {
	return nil
}

func (c *HostClient) storeName(name string) (string, error) {
	if name == "" {
		name = c.runtime.StoreName
	}
	if name == "" {
		return "", ErrInvalidStoreName
	}
	return name, nil
}

// failed logs a failed operation. Missing keys are expected and stay at debug level.
func (c *HostClient) failed(fn, store, key string, err error) {
	c.stats.failures[fn].Inc()
	if errors.Is(err, ErrKeyNotFound) {
		c.log.Debug("state key not found", "op", fn, "store", store, "key", key)
		return
	}
	c.log.Error("state operation failed", "op", fn, "store", store, "key", key, "error", err)
}

// call encodes req, invokes fn on the host and decodes a response of type R.
func call[R statusResponse](c *HostClient, fn string, req codec.Marshaler) (R, error) {
	var zero R

	payload, err := c.codec.Serialize(req)
	if err != nil {
		return zero, errors.Join(ErrMarshalRequest, err)
	}

	c.stats.calls[fn].Inc()
	c.stats.payload.Observe(float64(len(payload)))
	c.stats.inflight.Inc()
	defer c.stats.inflight.Dec()

	respBytes, callErr := c.hostCall(c.runtime.Namespace, capabilityName, fn, payload)
	if callErr != nil && len(respBytes) == 0 {
		return zero, errors.Join(sdk.ErrHostCall, callErr)
	}

	resp, decodeErr := codec.DecodeWith[R](c.codec, respBytes)
	if decodeErr != nil {
		if callErr != nil {
			return zero, errors.Join(
				sdk.ErrHostCall,
				callErr,
				sdk.ErrHostResponseInvalid,
				ErrUnmarshalResponse,
				decodeErr,
			)
		}
		return zero, errors.Join(sdk.ErrHostResponseInvalid, ErrUnmarshalResponse, decodeErr)
	}

	if statusErr := validateStatus(resp.GetStatus(), callErr); statusErr != nil {
		return zero, statusErr
	}
	return resp, nil
}

func validateStatus(status *sdkproto.Status, callErr error) error {
	if status == nil {
		if callErr != nil {
			return errors.Join(sdk.ErrHostCall, callErr, sdk.ErrHostResponseInvalid)
		}
		return sdk.ErrHostResponseInvalid
	}

	code := status.GetCode()
	detail := fmt.Sprintf("host status %d", code)
	if msg := status.GetStatus(); msg != "" {
		detail = fmt.Sprintf("%s: %s", detail, msg)
	}

	var errs []error
	switch code {
	case hostStatusOK, hostStatusPartial:
		return nil
	case hostStatusMissing:
		errs = []error{sdk.ErrHostError, ErrKeyNotFound, errors.New(detail)}
	case hostStatusConflict:
		errs = []error{sdk.ErrHostError, ErrEtagMismatch, errors.New(detail)}
	case hostStatusBadInput, hostStatusError:
		errs = []error{sdk.ErrHostError, errors.New(detail)}
	default:
		errs = []error{sdk.ErrHostResponseInvalid, fmt.Errorf("unexpected host status code %d", code)}
	}

	if callErr != nil {
		errs = append([]error{sdk.ErrHostCall, callErr}, errs...)
	}
	return errors.Join(errs...)
}

// fromItem builds the record of a read. Empty data means the key holds no value.
func fromItem(key string, data []byte, etag string, metadata map[string]string) State[[]byte] {
	s := State[[]byte]{key: key, etag: etag, metadata: metadata}
	if len(data) > 0 {
		s.value = data
		s.hasValue = true
	}
	return s
}

func toItems(states []State[[]byte]) ([]*statepb.StateItem, error) {
	items := make([]*statepb.StateItem, 0, len(states))
	for _, s := range states {
		if s.key == "" {
			return nil, ErrInvalidKey
		}
		items = append(items, &statepb.StateItem{
			Key:      s.key,
			Value:    s.value,
			Etag:     s.etag,
			Metadata: s.metadata,
			Options:  s.options.toProto(),
		})
	}
	return items, nil
}
