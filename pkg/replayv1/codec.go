package replayv1

import (
	"github.com/sugawarayuuta/sonnet"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content subtype used by the replay service
// ("application/grpc+json").
const CodecName = "json"

// Codec marshals replay messages as JSON.
type Codec struct{}

func init() {
	encoding.RegisterCodec(Codec{})
}

// Marshal implements encoding.Codec
func (Codec) Marshal(v any) ([]byte, error) {
	return sonnet.Marshal(v)
}

// Unmarshal implements encoding.Codec
func (Codec) Unmarshal(data []byte, v any) error {
	return sonnet.Unmarshal(data, v)
}

// Name implements encoding.Codec
func (Codec) Name() string {
	return CodecName
}
