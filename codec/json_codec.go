package codec

import "encoding/json"

// JSONCodec is a Codec[T] backed by encoding/json; the corpus never
// reaches for a third-party JSON library for this kind of plain
// struct marshaling, so the standard library is the idiomatic choice
// here (see DESIGN.md).
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Marshal(msg *T) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, marshalErr(err)
	}
	return b, nil
}

func (JSONCodec[T]) Unmarshal(data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, unmarshalErr(err)
	}
	return &v, nil
}
