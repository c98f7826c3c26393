package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// ProtoCodec is a Codec[T] for any generated protobuf message type,
// grounded on i2y-hyperway/codec.Codec's Marshal/Unmarshal wrapper
// shape but using google.golang.org/protobuf directly instead of a
// dynamically-compiled descriptor, since this module's methods are
// registered against a concrete Go type, not a runtime schema.
type ProtoCodec[T any] struct {
	// New constructs a zero-value T; *T must implement proto.Message,
	// since Marshal and Unmarshal hand a *T to the proto package.
	// Required because Go generics can't express "T implements
	// proto.Message and has a usable zero value" without an extra type
	// parameter bound, and most generated messages need a pointer
	// receiver anyway.
	New func() T
}

// NewProtoCodec returns a ProtoCodec using the supplied zero-value
// constructor.
func NewProtoCodec[T any](newMsg func() T) *ProtoCodec[T] {
	return &ProtoCodec[T]{New: newMsg}
}

func (c *ProtoCodec[T]) Marshal(msg *T) ([]byte, error) {
	pm, ok := any(msg).(proto.Message)
	if !ok {
		return nil, marshalErr(fmt.Errorf("%T does not implement proto.Message", msg))
	}
	b, err := proto.Marshal(pm)
	if err != nil {
		return nil, marshalErr(err)
	}
	return b, nil
}

func (c *ProtoCodec[T]) Unmarshal(data []byte) (*T, error) {
	v := c.New()
	pm, ok := any(&v).(proto.Message)
	if !ok {
		return nil, unmarshalErr(fmt.Errorf("%T does not implement proto.Message", &v))
	}
	if err := proto.Unmarshal(data, pm); err != nil {
		return nil, unmarshalErr(err)
	}
	return &v, nil
}
