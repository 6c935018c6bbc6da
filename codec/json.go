package codec

import (
	"bytes"
	"encoding/json"
)

var jsonNull = []byte("null")

// stripNulls rewrites a JSON document without the object members whose value is
// null. Array elements are kept so positions do not shift. Member order and the
// text of every other value are preserved.
func stripNulls(doc []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeWithoutNulls(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeWithoutNulls(buf *bytes.Buffer, raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '{' && raw[0] != '[') {
		buf.Write(raw)
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	open, err := dec.Token()
	if err != nil {
		return err
	}

	if open == json.Delim('[') {
		buf.WriteByte('[')
		for i := 0; dec.More(); i++ {
			var elem json.RawMessage
			if err := dec.Decode(&elem); err != nil {
				return err
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeWithoutNulls(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		_, err = dec.Token()
		return err
	}

	buf.WriteByte('{')
	written := 0
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		var member json.RawMessage
		if err := dec.Decode(&member); err != nil {
			return err
		}
		if bytes.Equal(bytes.TrimSpace(member), jsonNull) {
			continue
		}

		key, err := json.Marshal(tok)
		if err != nil {
			return err
		}
		if written > 0 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := writeWithoutNulls(buf, member); err != nil {
			return err
		}
		written++
	}
	buf.WriteByte('}')
	_, err = dec.Token()
	return err
}
