package codec

import (
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackCodec uses MessagePack for serialization. Positional untyped
// sequences are msgpack's native shape, so envelopes encode compactly
// without repeating field names.
type MsgpackCodec struct{}

func (c *MsgpackCodec) Encode(seq []any) ([]byte, error) {
	return msgpack.Marshal(seq)
}

func (c *MsgpackCodec) Decode(data []byte) ([]any, error) {
	var seq []any
	if err := msgpack.Unmarshal(data, &seq); err != nil {
		return nil, err
	}
	return seq, nil
}

func (c *MsgpackCodec) Type() CodecType {
	return CodecTypeMsgpack
}
