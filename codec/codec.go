package codec

// CodecType selects the serialization format. The value travels in the
// protocol frame header so both peers agree per message.
type CodecType byte

const (
	CodecTypeJSON    CodecType = 0
	CodecTypeMsgpack CodecType = 1
)

// Codec converts an ordered value sequence (an envelope) to and from bytes.
// It must round-trip booleans, strings, numbers, and nested sequences.
type Codec interface {
	Encode(seq []any) ([]byte, error)
	Decode(data []byte) ([]any, error)
	Type() CodecType // 0=JSON, 1=Msgpack
}

func GetCodec(codecType CodecType) Codec {
	if codecType == CodecTypeJSON {
		return &JSONCodec{}
	}

	return &MsgpackCodec{}
}
