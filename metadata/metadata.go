// Package metadata implements the ordered (name, value) header list
// exchanged at stream start, stream response, and stream trailer, and
// the canonical constructors for each (spec.md §3 "Metadata").
package metadata

import "strconv"

// Canonical header names (spec.md §6).
const (
	HeaderMethod      = ":method"
	HeaderPath        = ":path"
	HeaderScheme      = ":scheme"
	HeaderAuthority   = ":authority"
	HeaderStatus      = ":status"
	HeaderContentType = "content-type"
	HeaderTE          = "te"
	HeaderGRPCStatus  = "grpc-status"
	HeaderGRPCMessage = "grpc-message"

	ContentTypeGRPC = "application/grpc"
	TETrailers      = "trailers"
)

// Pair is one (name, value) header entry.
type Pair struct {
	Name  string
	Value string
}

// Metadata is an ordered sequence of header pairs. Name lookup is
// case-sensitive and returns the first match (spec.md §3).
type Metadata struct {
	pairs []Pair
}

// New builds an empty Metadata.
func New() *Metadata {
	return &Metadata{}
}

// Add appends a (name, value) pair, preserving insertion order even if
// name already exists.
func (m *Metadata) Add(name, value string) *Metadata {
	m.pairs = append(m.pairs, Pair{Name: name, Value: value})
	return m
}

// Get returns the value of the first pair named name, and whether it
// was found.
func (m *Metadata) Get(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, p := range m.pairs {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Pairs returns the underlying ordered pairs; callers must not mutate
// the returned slice.
func (m *Metadata) Pairs() []Pair {
	if m == nil {
		return nil
	}
	return m.pairs
}

// Clone returns an independent copy.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return New()
	}
	out := &Metadata{pairs: make([]Pair, len(m.pairs))}
	copy(out.pairs, m.pairs)
	return out
}

// IsTrailer reports whether this metadata carries grpc-status, which
// identifies it as a trailer regardless of stream position (spec.md §3
// invariant).
func (m *Metadata) IsTrailer() bool {
	_, ok := m.Get(HeaderGRPCStatus)
	return ok
}

// GRPCStatus parses the grpc-status header, returning ok=false if
// absent or malformed.
func (m *Metadata) GRPCStatus() (code int, ok bool) {
	v, found := m.Get(HeaderGRPCStatus)
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// GRPCMessage returns the grpc-message header, or "" if absent.
func (m *Metadata) GRPCMessage() string {
	v, _ := m.Get(HeaderGRPCMessage)
	return v
}

// RequestInitial builds the canonical request-initial metadata for one
// call: :method, :path=/<service>/<method>, :scheme, :authority,
// content-type, te (spec.md §3).
func RequestInitial(serviceName, methodName, scheme, authority string) *Metadata {
	m := New()
	m.Add(HeaderMethod, "POST")
	m.Add(HeaderPath, "/"+serviceName+"/"+methodName)
	if scheme != "" {
		m.Add(HeaderScheme, scheme)
	}
	if authority != "" {
		m.Add(HeaderAuthority, authority)
	}
	m.Add(HeaderContentType, ContentTypeGRPC)
	m.Add(HeaderTE, TETrailers)
	return m
}

// ResponseInitial builds the canonical response-initial metadata:
// :status=200, content-type (spec.md §3).
func ResponseInitial() *Metadata {
	m := New()
	m.Add(HeaderStatus, "200")
	m.Add(HeaderContentType, ContentTypeGRPC)
	return m
}

// Trailer builds the canonical trailer metadata carrying grpc-status
// and, if message is non-empty, grpc-message (spec.md §3).
func Trailer(code int, message string) *Metadata {
	m := New()
	m.Add(HeaderGRPCStatus, strconv.Itoa(code))
	if message != "" {
		m.Add(HeaderGRPCMessage, message)
	}
	return m
}

// ParsePath splits a :path value of shape /service/method into its two
// components. ok is false for any other shape (spec.md §4.4 "malformed
// path").
func ParsePath(path string) (serviceName, methodName string, ok bool) {
	if len(path) == 0 || path[0] != '/' {
		return "", "", false
	}
	rest := path[1:]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			service := rest[:i]
			method := rest[i+1:]
			if service == "" || method == "" {
				return "", "", false
			}
			// Reject an extra path segment; the contract is exactly
			// /service/method.
			for j := i + 1; j < len(rest); j++ {
				if rest[j] == '/' {
					return "", "", false
				}
			}
			return service, method, true
		}
	}
	return "", "", false
}
