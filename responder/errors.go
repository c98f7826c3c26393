package responder

import (
	"errors"

	"github.com/calyxrpc/calyx/codec"
	"github.com/calyxrpc/calyx/status"
)

// trailerForError classifies a handler or codec failure into the
// trailer it becomes (spec.md §4.4 "Codec boundary"): a *status.Error
// carries its own code through verbatim, a decode *codec.Error becomes
// INVALID_ARGUMENT, an encode *codec.Error or anything else becomes
// INTERNAL, matching the dispatch table's "any exception ⇒
// trailer(INTERNAL, message=exception)" default.
func trailerForError(err error) (status.Code, string) {
	var se *status.Error
	if errors.As(err, &se) {
		return se.Code(), se.Message()
	}

	var ce *codec.Error
	if errors.As(err, &ce) {
		if ce.Op == "unmarshal" {
			return status.InvalidArgument, err.Error()
		}
		return status.Internal, err.Error()
	}

	return status.Internal, err.Error()
}
