package statepb

import (
	sdkproto "github.com/tarmac-project/protobuf-go/sdk"
	"google.golang.org/protobuf/encoding/protowire"
)

// Enum values shared with the runtime's StateOptions message.
const (
	ConcurrencyUnspecified int32 = 0
	ConcurrencyFirstWrite  int32 = 1
	ConcurrencyLastWrite   int32 = 2

	ConsistencyUnspecified int32 = 0
	ConsistencyEventual    int32 = 1
	ConsistencyStrong      int32 = 2
)

// StateOptions configures concurrency and consistency of a write.
type StateOptions struct {
	Concurrency int32
	Consistency int32
}

func (m *StateOptions) MarshalVT() ([]byte, error) {
	var b []byte
	b = appendVarint(b, 1, m.Concurrency)
	b = appendVarint(b, 2, m.Consistency)
	return b, nil
}

func (m *StateOptions) UnmarshalVT(b []byte) error {
	*m = StateOptions{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeVarint(typ, b, &m.Concurrency)
		case 2:
			return consumeVarint(typ, b, &m.Consistency)
		}
		return 0, nil
	})
}

// StateItem is a single key/value pair with its concurrency data.
type StateItem struct {
	Key      string
	Value    []byte
	Etag     string
	Metadata map[string]string
	Options  *StateOptions
}

func (m *StateItem) MarshalVT() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Key)
	b = appendBytes(b, 2, m.Value)
	b = appendEtag(b, 3, m.Etag)
	b = appendMap(b, 4, m.Metadata)
	if m.Options != nil {
		opts, err := m.Options.MarshalVT()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 5, opts)
	}
	return b, nil
}

func (m *StateItem) UnmarshalVT(b []byte) error {
	*m = StateItem{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.Key)
		case 2:
			return consumeBytes(typ, b, &m.Value)
		case 3:
			return consumeEtag(typ, b, &m.Etag)
		case 4:
			return consumeMapEntry(typ, b, &m.Metadata)
		case 5:
			return consumeMessage(typ, b, func(msg []byte) error {
				m.Options = &StateOptions{}
				return m.Options.UnmarshalVT(msg)
			})
		}
		return 0, nil
	})
}

// GetStateRequest asks for the value stored under Key.
type GetStateRequest struct {
	StoreName   string
	Key         string
	Consistency int32
	Metadata    map[string]string
}

func (m *GetStateRequest) MarshalVT() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.StoreName)
	b = appendString(b, 2, m.Key)
	b = appendVarint(b, 3, m.Consistency)
	b = appendMap(b, 4, m.Metadata)
	return b, nil
}

func (m *GetStateRequest) UnmarshalVT(b []byte) error {
	*m = GetStateRequest{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.StoreName)
		case 2:
			return consumeString(typ, b, &m.Key)
		case 3:
			return consumeVarint(typ, b, &m.Consistency)
		case 4:
			return consumeMapEntry(typ, b, &m.Metadata)
		}
		return 0, nil
	})
}

// GetStateResponse carries the stored value. Empty Data means the key holds nothing.
type GetStateResponse struct {
	Status   *sdkproto.Status
	Data     []byte
	Etag     string
	Metadata map[string]string
}

func (m *GetStateResponse) GetStatus() *sdkproto.Status {
	if m == nil {
		return nil
	}
	return m.Status
}

func (m *GetStateResponse) MarshalVT() ([]byte, error) {
	b, err := appendStatus(nil, 1, m.Status)
	if err != nil {
		return nil, err
	}
	b = appendBytes(b, 2, m.Data)
	b = appendString(b, 3, m.Etag)
	b = appendMap(b, 4, m.Metadata)
	return b, nil
}

func (m *GetStateResponse) UnmarshalVT(b []byte) error {
	*m = GetStateResponse{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeStatus(typ, b, &m.Status)
		case 2:
			return consumeBytes(typ, b, &m.Data)
		case 3:
			return consumeString(typ, b, &m.Etag)
		case 4:
			return consumeMapEntry(typ, b, &m.Metadata)
		}
		return 0, nil
	})
}

// GetBulkStateRequest asks for several keys of one store.
type GetBulkStateRequest struct {
	StoreName   string
	Keys        []string
	Parallelism int32
	Metadata    map[string]string
}

func (m *GetBulkStateRequest) MarshalVT() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.StoreName)
	for _, k := range m.Keys {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, k)
	}
	b = appendVarint(b, 3, m.Parallelism)
	b = appendMap(b, 4, m.Metadata)
	return b, nil
}

func (m *GetBulkStateRequest) UnmarshalVT(b []byte) error {
	*m = GetBulkStateRequest{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.StoreName)
		case 2:
			var k string
			n, err := consumeString(typ, b, &k)
			if n > 0 {
				m.Keys = append(m.Keys, k)
			}
			return n, err
		case 3:
			return consumeVarint(typ, b, &m.Parallelism)
		case 4:
			return consumeMapEntry(typ, b, &m.Metadata)
		}
		return 0, nil
	})
}

// BulkStateItem is one entry of a bulk read. Error is set when the key could not be read.
type BulkStateItem struct {
	Key      string
	Data     []byte
	Etag     string
	Error    string
	Metadata map[string]string
}

func (m *BulkStateItem) MarshalVT() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Key)
	b = appendBytes(b, 2, m.Data)
	b = appendString(b, 3, m.Etag)
	b = appendString(b, 4, m.Error)
	b = appendMap(b, 5, m.Metadata)
	return b, nil
}

func (m *BulkStateItem) UnmarshalVT(b []byte) error {
	*m = BulkStateItem{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.Key)
		case 2:
			return consumeBytes(typ, b, &m.Data)
		case 3:
			return consumeString(typ, b, &m.Etag)
		case 4:
			return consumeString(typ, b, &m.Error)
		case 5:
			return consumeMapEntry(typ, b, &m.Metadata)
		}
		return 0, nil
	})
}

// GetBulkStateResponse lists the items of a bulk read in request order.
type GetBulkStateResponse struct {
	Status *sdkproto.Status
	Items  []*BulkStateItem
}

func (m *GetBulkStateResponse) GetStatus() *sdkproto.Status {
	if m == nil {
		return nil
	}
	return m.Status
}

func (m *GetBulkStateResponse) MarshalVT() ([]byte, error) {
	b, err := appendStatus(nil, 1, m.Status)
	if err != nil {
		return nil, err
	}
	for _, item := range m.Items {
		msg, err := item.MarshalVT()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 2, msg)
	}
	return b, nil
}

func (m *GetBulkStateResponse) UnmarshalVT(b []byte) error {
	*m = GetBulkStateResponse{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeStatus(typ, b, &m.Status)
		case 2:
			return consumeMessage(typ, b, func(msg []byte) error {
				item := &BulkStateItem{}
				if err := item.UnmarshalVT(msg); err != nil {
					return err
				}
				m.Items = append(m.Items, item)
				return nil
			})
		}
		return 0, nil
	})
}

// SaveStateRequest writes States to StoreName.
type SaveStateRequest struct {
	StoreName string
	States    []*StateItem
}

func (m *SaveStateRequest) MarshalVT() ([]byte, error) {
	return marshalItems(m.StoreName, m.States)
}

func (m *SaveStateRequest) UnmarshalVT(b []byte) error {
	*m = SaveStateRequest{}
	return unmarshalItems(b, &m.StoreName, &m.States)
}

// DeleteBulkStateRequest removes States from StoreName.
type DeleteBulkStateRequest struct {
	StoreName string
	States    []*StateItem
}

func (m *DeleteBulkStateRequest) MarshalVT() ([]byte, error) {
	return marshalItems(m.StoreName, m.States)
}

func (m *DeleteBulkStateRequest) UnmarshalVT(b []byte) error {
	*m = DeleteBulkStateRequest{}
	return unmarshalItems(b, &m.StoreName, &m.States)
}

// DeleteStateRequest removes a single key, guarded by Etag when set.
type DeleteStateRequest struct {
	StoreName string
	Key       string
	Etag      string
	Options   *StateOptions
	Metadata  map[string]string
}

func (m *DeleteStateRequest) MarshalVT() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.StoreName)
	b = appendString(b, 2, m.Key)
	b = appendEtag(b, 3, m.Etag)
	if m.Options != nil {
		opts, err := m.Options.MarshalVT()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 4, opts)
	}
	b = appendMap(b, 5, m.Metadata)
	return b, nil
}

func (m *DeleteStateRequest) UnmarshalVT(b []byte) error {
	*m = DeleteStateRequest{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.StoreName)
		case 2:
			return consumeString(typ, b, &m.Key)
		case 3:
			return consumeEtag(typ, b, &m.Etag)
		case 4:
			return consumeMessage(typ, b, func(msg []byte) error {
				m.Options = &StateOptions{}
				return m.Options.UnmarshalVT(msg)
			})
		case 5:
			return consumeMapEntry(typ, b, &m.Metadata)
		}
		return 0, nil
	})
}

// StatusResponse is the reply to writes and deletes.
type StatusResponse struct {
	Status *sdkproto.Status
}

func (m *StatusResponse) GetStatus() *sdkproto.Status {
	if m == nil {
		return nil
	}
	return m.Status
}

func (m *StatusResponse) MarshalVT() ([]byte, error) {
	return appendStatus(nil, 1, m.Status)
}

func (m *StatusResponse) UnmarshalVT(b []byte) error {
	*m = StatusResponse{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeStatus(typ, b, &m.Status)
		}
		return 0, nil
	})
}

func marshalItems(store string, items []*StateItem) ([]byte, error) {
	b := appendString(nil, 1, store)
	for _, item := range items {
		msg, err := item.MarshalVT()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 2, msg)
	}
	return b, nil
}

func unmarshalItems(b []byte, store *string, items *[]*StateItem) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, store)
		case 2:
			return consumeMessage(typ, b, func(msg []byte) error {
				item := &StateItem{}
				if err := item.UnmarshalVT(msg); err != nil {
					return err
				}
				*items = append(*items, item)
				return nil
			})
		}
		return 0, nil
	})
}

// appendEtag writes the runtime's Etag wrapper message when an etag is set.
func appendEtag(b []byte, num protowire.Number, etag string) []byte {
	if etag == "" {
		return b
	}
	return appendMessage(b, num, appendString(nil, 1, etag))
}

func consumeEtag(typ protowire.Type, b []byte, dst *string) (int, error) {
	return consumeMessage(typ, b, func(msg []byte) error {
		return walk(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if num == 1 {
				return consumeString(typ, b, dst)
			}
			return 0, nil
		})
	})
}
