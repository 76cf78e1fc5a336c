// Package encoding frames serializable values on byte streams.
package encoding

import (
	"bytes"
	"encoding/json"
	"sync"
)

// Serializable provides a clean, simple interface for serializing and deserializing values.
type Serializable interface {
	Serialize() ([]byte, error)
	Deserialize([]byte) error
}

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// MarshalJSON encodes v without the trailing newline json.Encoder adds.
func MarshalJSON(v any) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bufferPool.Put(buf)
	}()

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len()-1)
	copy(out, buf.Bytes())
	return out, nil
}
