package state_test

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	sdk "github.com/layotto/go-sdk"
	"github.com/layotto/go-sdk/hostmock"
	"github.com/layotto/go-sdk/internal/statepb"
	"github.com/layotto/go-sdk/metrics"
	"github.com/layotto/go-sdk/state"
	sdkproto "github.com/tarmac-project/protobuf-go/sdk"
	metricspb "github.com/tarmac-project/protobuf-go/sdk/metrics"
)

const (
	namespace  = "testing"
	capability = "state"
	storeName  = "redis"
)

var errHost = errors.New("host unavailable")

func statusOK() *sdkproto.Status { return &sdkproto.Status{Status: "OK", Code: 200} }

func respond(msg interface{ MarshalVT() ([]byte, error) }) func() []byte {
	return func() []byte {
		b, _ := msg.MarshalVT()
		return b
	}
}

func newClient(t *testing.T, cfg hostmock.Config, logger *recorder) (*state.HostClient, *hostmock.Mock) {
	t.Helper()
	cfg.ExpectedNamespace = namespace
	cfg.ExpectedCapability = capability

	mock, err := hostmock.New(cfg)
	if err != nil {
		t.Fatalf("hostmock.New returned error: %v", err)
	}

	sc := state.Config{
		SDKConfig: sdk.RuntimeConfig{Namespace: namespace, StoreName: storeName},
		HostCall:  mock.HostCall,
	}
	if logger != nil {
		sc.Logger = logger
	}
	c, err := state.NewClient(sc)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c, mock
}

// recorder is a logging.Client that keeps every entry.
type recorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *recorder) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, level+" "+msg)
}

func (r *recorder) Trace(msg string, _ ...any) { r.add("TRACE", msg) }
func (r *recorder) Debug(msg string, _ ...any) { r.add("DEBUG", msg) }
func (r *recorder) Info(msg string, _ ...any)  { r.add("INFO", msg) }
func (r *recorder) Warn(msg string, _ ...any)  { r.add("WARN", msg) }
func (r *recorder) Error(msg string, _ ...any) { r.add("ERROR", msg) }

func (r *recorder) has(entry string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e == entry {
			return true
		}
	}
	return false
}

func TestNewClientDefaults(t *testing.T) {
	var got string
	c, err := state.NewClient(state.Config{
		SDKConfig: sdk.RuntimeConfig{StoreName: storeName},
		HostCall: func(ns, _, _ string, _ []byte) ([]byte, error) {
			got = ns
			return respond(&statepb.GetStateResponse{Status: statusOK(), Data: []byte("v")})(), nil
		},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := c.Get(state.GetRequest{Key: "k"}); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != sdk.DefaultNamespace {
		t.Fatalf("expected default namespace %q, got %q", sdk.DefaultNamespace, got)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestClientGet(t *testing.T) {
	tests := []struct {
		name      string
		req       state.GetRequest
		cfg       hostmock.Config
		wantValue []byte
		wantEtag  string
		wantErrs  []error
	}{
		{
			name: "success",
			req:  state.GetRequest{Key: "order-1", Consistency: state.ConsistencyStrong},
			cfg: hostmock.Config{
				ExpectedFunction: "get",
				PayloadValidator: func(b []byte) error {
					var req statepb.GetStateRequest
					if err := req.UnmarshalVT(b); err != nil {
						return err
					}
					if req.StoreName != storeName || req.Key != "order-1" || req.Consistency != statepb.ConsistencyStrong {
						return fmt.Errorf("unexpected request %+v", &req)
					}
					return nil
				},
				Response: respond(&statepb.GetStateResponse{
					Status:   statusOK(),
					Data:     []byte(`{"id":1}`),
					Etag:     "5",
					Metadata: map[string]string{"contentType": "application/json"},
				}),
			},
			wantValue: []byte(`{"id":1}`),
			wantEtag:  "5",
		},
		{
			name: "explicit store",
			req:  state.GetRequest{StoreName: "etcd", Key: "k"},
			cfg: hostmock.Config{
				ExpectedFunction: "get",
				PayloadValidator: func(b []byte) error {
					var req statepb.GetStateRequest
					if err := req.UnmarshalVT(b); err != nil {
						return err
					}
					if req.StoreName != "etcd" {
						return fmt.Errorf("expected store etcd, got %s", req.StoreName)
					}
					return nil
				},
				Response: respond(&statepb.GetStateResponse{Status: statusOK(), Data: []byte("v")}),
			},
			wantValue: []byte("v"),
		},
		{
			name: "empty data",
			req:  state.GetRequest{Key: "k"},
			cfg: hostmock.Config{
				ExpectedFunction: "get",
				Response:         respond(&statepb.GetStateResponse{Status: statusOK()}),
			},
		},
		{
			name: "not found",
			req:  state.GetRequest{Key: "missing"},
			cfg: hostmock.Config{
				ExpectedFunction: "get",
				Response:         respond(&statepb.GetStateResponse{Status: &sdkproto.Status{Status: "Not Found", Code: 404}}),
			},
			wantErrs: []error{sdk.ErrHostError, state.ErrKeyNotFound},
		},
		{
			name: "host error status",
			req:  state.GetRequest{Key: "k"},
			cfg: hostmock.Config{
				ExpectedFunction: "get",
				Response:         respond(&statepb.GetStateResponse{Status: &sdkproto.Status{Status: "boom", Code: 500}}),
			},
			wantErrs: []error{sdk.ErrHostError},
		},
		{
			name: "unexpected status",
			req:  state.GetRequest{Key: "k"},
			cfg: hostmock.Config{
				ExpectedFunction: "get",
				Response:         respond(&statepb.GetStateResponse{Status: &sdkproto.Status{Status: "teapot", Code: 418}}),
			},
			wantErrs: []error{sdk.ErrHostResponseInvalid},
		},
		{
			name: "missing status",
			req:  state.GetRequest{Key: "k"},
			cfg: hostmock.Config{
				ExpectedFunction: "get",
				Response:         respond(&statepb.GetStateResponse{Data: []byte("v")}),
			},
			wantErrs: []error{sdk.ErrHostResponseInvalid},
		},
		{
			name: "invalid response",
			req:  state.GetRequest{Key: "k"},
			cfg: hostmock.Config{
				ExpectedFunction: "get",
				Response:         func() []byte { return []byte("invalid response") },
			},
			wantErrs: []error{sdk.ErrHostResponseInvalid, state.ErrUnmarshalResponse},
		},
		{
			name:     "host call failure",
			req:      state.GetRequest{Key: "k"},
			cfg:      hostmock.Config{Fail: true, Error: errHost},
			wantErrs: []error{sdk.ErrHostCall, errHost},
		},
		{
			name: "host failure with status",
			req:  state.GetRequest{Key: "k"},
			cfg: hostmock.Config{
				Routes: map[string]hostmock.Route{
					"get": {
						Response: respond(&statepb.GetStateResponse{Status: &sdkproto.Status{Status: "down", Code: 500}}),
						Error:    errHost,
					},
				},
			},
			wantErrs: []error{sdk.ErrHostCall, errHost, sdk.ErrHostError},
		},
		{
			name:     "empty key",
			req:      state.GetRequest{Key: ""},
			cfg:      hostmock.Config{Fail: true},
			wantErrs: []error{state.ErrInvalidKey},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newClient(t, tc.cfg, nil)

			got, err := c.Get(tc.req)
			if len(tc.wantErrs) > 0 {
				for _, want := range tc.wantErrs {
					if !errors.Is(err, want) {
						t.Fatalf("expected error %v, got %v", want, err)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Key() != tc.req.Key {
				t.Fatalf("expected key %q, got %q", tc.req.Key, got.Key())
			}
			if got.HasValue() != (tc.wantValue != nil) || !bytes.Equal(got.Value(), tc.wantValue) {
				t.Fatalf("expected value %q, got %q", tc.wantValue, got.Value())
			}
			if got.Etag() != tc.wantEtag {
				t.Fatalf("expected etag %q, got %q", tc.wantEtag, got.Etag())
			}
		})
	}
}

func TestClientStoreName(t *testing.T) {
	c, err := state.NewClient(state.Config{
		SDKConfig: sdk.RuntimeConfig{Namespace: namespace},
		HostCall: func(string, string, string, []byte) ([]byte, error) {
			return nil, errors.New("host should not be called")
		},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if _, err := c.Get(state.GetRequest{Key: "k"}); !errors.Is(err, state.ErrInvalidStoreName) {
		t.Fatalf("Get: expected ErrInvalidStoreName, got %v", err)
	}
	if _, err := c.GetBulk(state.GetBulkRequest{Keys: []string{"k"}}); !errors.Is(err, state.ErrInvalidStoreName) {
		t.Fatalf("GetBulk: expected ErrInvalidStoreName, got %v", err)
	}
	if err := c.Save("", state.NewValue("k", []byte("v"), "")); !errors.Is(err, state.ErrInvalidStoreName) {
		t.Fatalf("Save: expected ErrInvalidStoreName, got %v", err)
	}
	if err := c.Delete("", state.New[[]byte]("k")); !errors.Is(err, state.ErrInvalidStoreName) {
		t.Fatalf("Delete: expected ErrInvalidStoreName, got %v", err)
	}
	if err := c.DeleteBulk("", state.New[[]byte]("k")); !errors.Is(err, state.ErrInvalidStoreName) {
		t.Fatalf("DeleteBulk: expected ErrInvalidStoreName, got %v", err)
	}
}

func TestClientGetBulk(t *testing.T) {
	t.Run("mixed results", func(t *testing.T) {
		c, _ := newClient(t, hostmock.Config{
			ExpectedFunction: "getBulk",
			PayloadValidator: func(b []byte) error {
				var req statepb.GetBulkStateRequest
				if err := req.UnmarshalVT(b); err != nil {
					return err
				}
				if len(req.Keys) != 3 || req.Parallelism != 2 || req.StoreName != storeName {
					return fmt.Errorf("unexpected request %+v", &req)
				}
				return nil
			},
			Response: respond(&statepb.GetBulkStateResponse{
				Status: &sdkproto.Status{Status: "Partial", Code: 206},
				Items: []*statepb.BulkStateItem{
					{Key: "a", Data: []byte("1"), Etag: "1"},
					{Key: "b"},
					{Key: "c", Error: "timeout"},
				},
			}),
		}, nil)

		got, err := c.GetBulk(state.GetBulkRequest{Keys: []string{"a", "b", "c"}, Parallelism: 2})
		if err != nil {
			t.Fatalf("GetBulk returned error: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 records, got %d", len(got))
		}
		if got[0].Key() != "a" || string(got[0].Value()) != "1" || got[0].Etag() != "1" {
			t.Fatalf("unexpected first record: %s", got[0])
		}
		if got[1].HasValue() || got[1].ErrorMessage() != "" {
			t.Fatalf("expected an empty record, got %s", got[1])
		}
		if got[2].HasValue() || got[2].ErrorMessage() != "timeout" {
			t.Fatalf("expected an error record, got %s", got[2])
		}
	})

	t.Run("no keys", func(t *testing.T) {
		c, mock := newClient(t, hostmock.Config{Fail: true}, nil)
		got, err := c.GetBulk(state.GetBulkRequest{})
		if err != nil || got != nil {
			t.Fatalf("expected nil, nil; got %v, %v", got, err)
		}
		if len(mock.Calls()) != 0 {
			t.Fatalf("expected no host calls")
		}
	})

	t.Run("empty key", func(t *testing.T) {
		c, _ := newClient(t, hostmock.Config{Fail: true}, nil)
		if _, err := c.GetBulk(state.GetBulkRequest{Keys: []string{"a", ""}}); !errors.Is(err, state.ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("host error", func(t *testing.T) {
		c, _ := newClient(t, hostmock.Config{
			ExpectedFunction: "getBulk",
			Response:         respond(&statepb.GetBulkStateResponse{Status: &sdkproto.Status{Status: "bad", Code: 400}}),
		}, nil)
		if _, err := c.GetBulk(state.GetBulkRequest{Keys: []string{"a"}}); !errors.Is(err, sdk.ErrHostError) {
			t.Fatalf("expected ErrHostError, got %v", err)
		}
	})
}

func TestClientSave(t *testing.T) {
	opts := &state.Options{Concurrency: state.ConcurrencyFirstWrite, Consistency: state.ConsistencyStrong}

	t.Run("success", func(t *testing.T) {
		c, mock := newClient(t, hostmock.Config{
			ExpectedFunction: "save",
			PayloadValidator: func(b []byte) error {
				var req statepb.SaveStateRequest
				if err := req.UnmarshalVT(b); err != nil {
					return err
				}
				if req.StoreName != storeName || len(req.States) != 2 {
					return fmt.Errorf("unexpected request %+v", &req)
				}
				first := req.States[0]
				if first.Key != "a" || string(first.Value) != "1" || first.Etag != "3" || first.Metadata["ttlInSeconds"] != "60" {
					return fmt.Errorf("unexpected first item %+v", first)
				}
				if first.Options == nil || first.Options.Concurrency != statepb.ConcurrencyFirstWrite || first.Options.Consistency != statepb.ConsistencyStrong {
					return fmt.Errorf("unexpected first item options %+v", first.Options)
				}
				if req.States[1].Options != nil {
					return fmt.Errorf("expected no options on second item")
				}
				return nil
			},
			Response: respond(&statepb.StatusResponse{Status: statusOK()}),
		}, nil)

		err := c.Save("",
			state.NewWithMetadata("a", []byte("1"), "3", map[string]string{"ttlInSeconds": "60"}, opts),
			state.NewValue("b", []byte("2"), ""),
		)
		if err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
		if calls := mock.Calls(); len(calls) != 1 || calls[0].Function != "save" {
			t.Fatalf("expected one save call, got %+v", calls)
		}
	})

	t.Run("nothing to save", func(t *testing.T) {
		c, mock := newClient(t, hostmock.Config{Fail: true}, nil)
		if err := c.Save(""); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(mock.Calls()) != 0 {
			t.Fatalf("expected no host calls")
		}
	})

	t.Run("empty key", func(t *testing.T) {
		c, _ := newClient(t, hostmock.Config{Fail: true}, nil)
		if err := c.Save("", state.NewValue("", []byte("v"), "")); !errors.Is(err, state.ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("etag mismatch", func(t *testing.T) {
		c, _ := newClient(t, hostmock.Config{
			ExpectedFunction: "save",
			Response:         respond(&statepb.StatusResponse{Status: &sdkproto.Status{Status: "conflict", Code: 409}}),
		}, nil)
		err := c.Save("", state.NewWithOptions("a", []byte("1"), "1", opts))
		if !errors.Is(err, state.ErrEtagMismatch) || !errors.Is(err, sdk.ErrHostError) {
			t.Fatalf("expected ErrEtagMismatch, got %v", err)
		}
	})

	t.Run("host call failure", func(t *testing.T) {
		c, _ := newClient(t, hostmock.Config{Fail: true, Error: errHost}, nil)
		if err := c.Save("", state.NewValue("a", []byte("1"), "")); !errors.Is(err, sdk.ErrHostCall) {
			t.Fatalf("expected ErrHostCall, got %v", err)
		}
	})
}

func TestClientDelete(t *testing.T) {
	t.Run("delete", func(t *testing.T) {
		c, _ := newClient(t, hostmock.Config{
			ExpectedFunction: "delete",
			PayloadValidator: func(b []byte) error {
				var req statepb.DeleteStateRequest
				if err := req.UnmarshalVT(b); err != nil {
					return err
				}
				if req.Key != "a" || req.Etag != "2" || req.Options == nil || req.Options.Concurrency != statepb.ConcurrencyLastWrite {
					return fmt.Errorf("unexpected request %+v", &req)
				}
				return nil
			},
			Response: respond(&statepb.StatusResponse{Status: statusOK()}),
		}, nil)

		ref := state.NewReference[[]byte]("a", "2", &state.Options{Concurrency: state.ConcurrencyLastWrite})
		if err := c.Delete("", ref); err != nil {
			t.Fatalf("Delete returned error: %v", err)
		}
	})

	t.Run("delete empty key", func(t *testing.T) {
		c, _ := newClient(t, hostmock.Config{Fail: true}, nil)
		if err := c.Delete("", state.New[[]byte]("")); !errors.Is(err, state.ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("delete conflict", func(t *testing.T) {
		c, _ := newClient(t, hostmock.Config{
			ExpectedFunction: "delete",
			Response:         respond(&statepb.StatusResponse{Status: &sdkproto.Status{Status: "conflict", Code: 409}}),
		}, nil)
		if err := c.Delete("", state.NewReference[[]byte]("a", "1", nil)); !errors.Is(err, state.ErrEtagMismatch) {
			t.Fatalf("expected ErrEtagMismatch, got %v", err)
		}
	})

	t.Run("delete bulk", func(t *testing.T) {
		c, _ := newClient(t, hostmock.Config{
			ExpectedFunction: "deleteBulk",
			PayloadValidator: func(b []byte) error {
				var req statepb.DeleteBulkStateRequest
				if err := req.UnmarshalVT(b); err != nil {
					return err
				}
				if len(req.States) != 2 || req.States[0].Key != "a" || req.States[1].Etag != "4" {
					return fmt.Errorf("unexpected request %+v", &req)
				}
				return nil
			},
			Response: respond(&statepb.StatusResponse{Status: statusOK()}),
		}, nil)

		err := c.DeleteBulk("", state.New[[]byte]("a"), state.NewReference[[]byte]("b", "4", nil))
		if err != nil {
			t.Fatalf("DeleteBulk returned error: %v", err)
		}
	})

	t.Run("delete bulk nothing", func(t *testing.T) {
		c, mock := newClient(t, hostmock.Config{Fail: true}, nil)
		if err := c.DeleteBulk(""); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(mock.Calls()) != 0 {
			t.Fatalf("expected no host calls")
		}
	})

	t.Run("delete bulk invalid response", func(t *testing.T) {
		c, _ := newClient(t, hostmock.Config{
			ExpectedFunction: "deleteBulk",
			Response:         func() []byte { return []byte("invalid response") },
		}, nil)
		if err := c.DeleteBulk("", state.New[[]byte]("a")); !errors.Is(err, sdk.ErrHostResponseInvalid) {
			t.Fatalf("expected ErrHostResponseInvalid, got %v", err)
		}
	})
}

func TestClientLogging(t *testing.T) {
	log := &recorder{}
	c, _ := newClient(t, hostmock.Config{
		Routes: map[string]hostmock.Route{
			"get":  {Response: respond(&statepb.GetStateResponse{Status: &sdkproto.Status{Status: "Not Found", Code: 404}})},
			"save": {Response: respond(&statepb.StatusResponse{Status: &sdkproto.Status{Status: "boom", Code: 500}})},
		},
	}, log)

	if _, err := c.Get(state.GetRequest{Key: "missing"}); !errors.Is(err, state.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := c.Save("", state.NewValue("k", []byte("v"), "")); err == nil {
		t.Fatalf("expected Save to fail")
	}

	for _, want := range []string{
		"DEBUG state get",
		"DEBUG state key not found",
		"DEBUG state save",
		"ERROR state operation failed",
	} {
		if !log.has(want) {
			t.Errorf("missing log entry %q in %v", want, log.entries)
		}
	}
}

func TestClientMetrics(t *testing.T) {
	metricsHost, err := hostmock.New(hostmock.Config{ExpectedCapability: "metrics"})
	if err != nil {
		t.Fatalf("hostmock.New returned error: %v", err)
	}
	m, err := metrics.New(metrics.Config{SDKConfig: sdk.RuntimeConfig{Namespace: namespace}, HostCall: metricsHost.HostCall})
	if err != nil {
		t.Fatalf("metrics.New returned error: %v", err)
	}

	stateHost, _ := hostmock.New(hostmock.Config{
		ExpectedNamespace:  namespace,
		ExpectedCapability: capability,
		Routes: map[string]hostmock.Route{
			"getBulk": {Response: respond(&statepb.GetBulkStateResponse{Status: statusOK()})},
			"delete":  {Response: respond(&statepb.StatusResponse{Status: &sdkproto.Status{Status: "boom", Code: 500}})},
		},
	})
	c, err := state.NewClient(state.Config{
		SDKConfig: sdk.RuntimeConfig{Namespace: namespace, StoreName: storeName},
		HostCall:  stateHost.HostCall,
		Metrics:   m,
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if _, err := c.GetBulk(state.GetBulkRequest{Keys: []string{"a"}}); err != nil {
		t.Fatalf("GetBulk returned error: %v", err)
	}
	if err := c.Delete("", state.New[[]byte]("a")); err == nil {
		t.Fatalf("expected Delete to fail")
	}

	counters := map[string]int{}
	gauges := map[string]int{}
	histograms := 0
	for _, call := range metricsHost.Calls() {
		switch call.Function {
		case "counter":
			var msg metricspb.MetricsCounter
			if err := msg.UnmarshalVT(call.Payload); err != nil {
				t.Fatalf("invalid counter payload: %v", err)
			}
			counters[msg.Name]++
		case "gauge":
			var msg metricspb.MetricsGauge
			if err := msg.UnmarshalVT(call.Payload); err != nil {
				t.Fatalf("invalid gauge payload: %v", err)
			}
			gauges[msg.Action]++
		case "histogram":
			histograms++
		}
	}

	want := map[string]int{
		"state_getbulk_total":         1,
		"state_delete_total":          1,
		"state_delete_failures_total": 1,
	}
	for name, n := range want {
		if counters[name] != n {
			t.Errorf("counter %s: got %d, want %d (all: %v)", name, counters[name], n, counters)
		}
	}
	if counters["state_getbulk_failures_total"] != 0 {
		t.Errorf("unexpected getBulk failure count")
	}
	if gauges["inc"] != 2 || gauges["dec"] != 2 {
		t.Errorf("expected balanced in-flight gauge, got %v", gauges)
	}
	if histograms != 2 {
		t.Errorf("expected 2 payload observations, got %d", histograms)
	}
}
