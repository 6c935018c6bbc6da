package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
)

// Kind identifies the JSON type held by a Node.
type Kind int

const (
	// KindMissing marks a node that does not exist, such as an absent object member.
	KindMissing Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "missing"
}

// Node is a read-only view of one value of a parsed JSON document. Navigating
// past the shape of the document yields a missing node rather than a panic, so
// lookups can be chained:
//
//	node.Get("data").Get("items").Index(0).Text()
type Node struct {
	kind  Kind
	value any
}

// ParseToTree parses b as a single JSON document. An empty payload yields a missing
// node; malformed input fails with ErrDecoding.
func (c *Codec) ParseToTree(b []byte) (Node, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return Node{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Node{}, errors.Join(ErrDecoding, err)
	}
	return newNode(v), nil
}

func newNode(v any) Node {
	switch v.(type) {
	case nil:
		return Node{kind: KindNull}
	case bool:
		return Node{kind: KindBool, value: v}
	case json.Number:
		return Node{kind: KindNumber, value: v}
	case string:
		return Node{kind: KindString, value: v}
	case []any:
		return Node{kind: KindArray, value: v}
	case map[string]any:
		return Node{kind: KindObject, value: v}
	}
	return Node{}
}

// Kind returns the JSON type of the node.
func (n Node) Kind() Kind { return n.kind }

// IsMissing reports whether the node does not exist in the document.
func (n Node) IsMissing() bool { return n.kind == KindMissing }

// IsNull reports whether the node is an explicit JSON null.
func (n Node) IsNull() bool { return n.kind == KindNull }

// Get returns the member named field of an object node.
func (n Node) Get(field string) Node {
	obj, ok := n.value.(map[string]any)
	if !ok {
		return Node{}
	}
	v, ok := obj[field]
	if !ok {
		return Node{}
	}
	return newNode(v)
}

// Index returns element i of an array node.
func (n Node) Index(i int) Node {
	arr, ok := n.value.([]any)
	if !ok || i < 0 || i >= len(arr) {
		return Node{}
	}
	return newNode(arr[i])
}

// Len returns the number of elements of an array or members of an object, and 0
// for every other kind.
func (n Node) Len() int {
	switch v := n.value.(type) {
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	}
	return 0
}

// Keys returns the sorted member names of an object node.
func (n Node) Keys() []string {
	obj, ok := n.value.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Text returns the scalar value as text: the string itself, the number literal,
// or "true"/"false". Containers, null and missing nodes return "".
func (n Node) Text() string {
	switch v := n.value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// Bool returns the value of a bool node.
func (n Node) Bool() (bool, bool) {
	v, ok := n.value.(bool)
	return v, ok
}

// Int64 returns the value of a number node that holds an integer.
func (n Node) Int64() (int64, bool) {
	num, ok := n.value.(json.Number)
	if !ok {
		return 0, false
	}
	v, err := num.Int64()
	return v, err == nil
}

// Float64 returns the value of a number node.
func (n Node) Float64() (float64, bool) {
	num, ok := n.value.(json.Number)
	if !ok {
		return 0, false
	}
	v, err := num.Float64()
	return v, err == nil
}

// Interface returns the decoded value. Numbers are json.Number, arrays []any and
// objects map[string]any. Missing and null nodes return nil.
func (n Node) Interface() any { return n.value }

// String renders the node back to compact JSON.
func (n Node) String() string {
	switch n.kind {
	case KindMissing:
		return ""
	case KindNull:
		return "null"
	}
	b, err := json.Marshal(n.value)
	if err != nil {
		return ""
	}
	return string(b)
}
