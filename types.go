package azstore

import (
	"net/http"
	"sort"
	"strings"
	"time"
)

// Method is an HTTP verb accepted by the storage service.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPut    Method = "PUT"
	MethodPost   Method = "POST"
	MethodDelete Method = "DELETE"
	MethodHead   Method = "HEAD"
	MethodMerge  Method = "MERGE"
)

// IsValid reports whether m is one of the verbs the service accepts.
func (m Method) IsValid() bool {
	switch m {
	case MethodGet, MethodPut, MethodPost, MethodDelete, MethodHead, MethodMerge:
		return true
	default:
		return false
	}
}

// ServiceType selects which storage service endpoint a request targets.
type ServiceType string

const (
	ServiceBlob  ServiceType = "blob"
	ServiceQueue ServiceType = "queue"
	ServiceTable ServiceType = "table"
)

// IsValid reports whether s names a known storage service.
func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceBlob, ServiceQueue, ServiceTable:
		return true
	default:
		return false
	}
}

// QueryParam is a single query string pair. Requests keep query parameters as
// an ordered list so insertion order is preserved on the wire and duplicate
// keys are allowed.
type QueryParam struct {
	Key   string
	Value string
}

// FilterNonEmptyQueryValues drops pairs whose value is empty. Callers use it
// when adding parameters in bulk so unset optional values never reach the
// wire.
func FilterNonEmptyQueryValues(params []QueryParam) []QueryParam {
	out := make([]QueryParam, 0, len(params))
	for _, p := range params {
		if p.Value != "" {
			out = append(out, p)
		}
	}
	return out
}

type headerEntry struct {
	name  string // casing as it should appear on the wire
	value string
}

// Headers is a header collection with case-insensitive keys. The service
// treats header names case-insensitively, so entries are stored under a
// lower-cased lookup key while the original casing is kept for the outgoing
// request. Writing a name twice overwrites the previous value regardless of
// casing.
type Headers struct {
	entries map[string]headerEntry
}

// NewHeaders returns an empty header collection.
func NewHeaders() *Headers {
	return &Headers{entries: make(map[string]headerEntry)}
}

// HeadersFromHTTP copies an http.Header into a Headers collection, keeping
// the first value of each name.
func HeadersFromHTTP(h http.Header) *Headers {
	out := NewHeaders()
	for name, values := range h {
		if len(values) > 0 {
			out.Set(name, values[0])
		}
	}
	return out
}

// Set upserts a header. The last write for a name wins.
func (h *Headers) Set(name, value string) {
	if h.entries == nil {
		h.entries = make(map[string]headerEntry)
	}
	h.entries[strings.ToLower(name)] = headerEntry{name: name, value: value}
}

// Get returns the value for name, or "" when unset.
func (h *Headers) Get(name string) string {
	if h == nil || h.entries == nil {
		return ""
	}
	return h.entries[strings.ToLower(name)].value
}

// Has reports whether name is set, even to an empty value.
func (h *Headers) Has(name string) bool {
	if h == nil || h.entries == nil {
		return false
	}
	_, ok := h.entries[strings.ToLower(name)]
	return ok
}

// Del removes a header if present.
func (h *Headers) Del(name string) {
	if h == nil || h.entries == nil {
		return
	}
	delete(h.entries, strings.ToLower(name))
}

// Len returns the number of headers set.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

// Names returns the wire-cased header names in lookup-key order.
func (h *Headers) Names() []string {
	if h == nil {
		return nil
	}
	keys := make([]string, 0, len(h.entries))
	for k := range h.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = h.entries[k].name
	}
	return names
}

// Each calls fn for every header with its wire casing, in lookup-key order.
func (h *Headers) Each(fn func(name, value string)) {
	if h == nil {
		return
	}
	keys := make([]string, 0, len(h.entries))
	for k := range h.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := h.entries[k]
		fn(e.name, e.value)
	}
}

// Clone returns an independent copy.
func (h *Headers) Clone() *Headers {
	out := NewHeaders()
	if h == nil {
		return out
	}
	for k, e := range h.entries {
		out.entries[k] = e
	}
	return out
}

// RawResponse is the uniform result shape the dispatcher produces for every
// call: the HTTP status, the response headers, the fully read body, and the
// URL the request was sent to.
type RawResponse struct {
	Status int
	Header http.Header
	Body   []byte
	URL    string
}

// ResponseMeta holds the common response headers the service attaches to most
// operations. Pointer fields are nil when the corresponding header is absent;
// a missing header is never an error.
type ResponseMeta struct {
	RequestID    string
	ETag         string
	LastModified *time.Time
	Date         *time.Time
	Expires      *time.Time
}
