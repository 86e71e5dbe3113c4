package codec

import (
	"encoding/json"
)

// JSONCodec uses Go's standard library encoding/json for serialization.
// Pros: human-readable, cross-language, easy to debug.
// Cons: slower, larger payload, numbers decode as float64.
type JSONCodec struct{}

func (c *JSONCodec) Encode(seq []any) ([]byte, error) {
	return json.Marshal(seq)
}

func (c *JSONCodec) Decode(data []byte) ([]any, error) {
	var seq []any
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, err
	}
	return seq, nil
}

func (c *JSONCodec) Type() CodecType {
	return CodecTypeJSON
}
