package codec

// RawCodec is the identity Codec[[]byte]: the caller has already
// serialized the message, and the responder will re-serialize without
// inspecting it. Grounded on spec.md §9's note that the source uses a
// "passthrough" codec as a type-system escape hatch when the typed
// layer isn't needed; here it's an explicit, typed escape hatch rather
// than a dynamic one.
type RawCodec struct{}

func (RawCodec) Marshal(msg *[]byte) ([]byte, error) {
	if msg == nil {
		return nil, nil
	}
	return *msg, nil
}

func (RawCodec) Unmarshal(data []byte) (*[]byte, error) {
	cp := make([]byte, len(data))
	copy(cp, data)
	return &cp, nil
}
