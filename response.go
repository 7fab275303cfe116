package azstore

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Codec encodes and decodes payload bodies. Implementations are injected into
// the client at construction instead of relying on process-wide codec
// configuration.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// JSONCodec is the stdlib JSON codec.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }
func (JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// XMLCodec is the stdlib XML codec.
type XMLCodec struct{}

func (XMLCodec) Encode(v any) ([]byte, error) { return xml.Marshal(v) }
func (XMLCodec) Decode(data []byte, v any) error {
	return xml.Unmarshal(data, v)
}

// ServiceError is a 4xx/5xx response from the service, carrying the parsed
// XML error envelope. Message holds one entry per line of the envelope's
// <Message> text. The core never retries; callers decide.
type ServiceError struct {
	Code                      string
	Message                   []string
	AuthenticationErrorDetail string
	QueryParameterName        string
	QueryParameterValue       string
	Status                    int
	URL                       string
	RequestID                 string
}

func (e *ServiceError) Error() string {
	msg := ""
	if len(e.Message) > 0 {
		msg = e.Message[0]
	}
	return fmt.Sprintf("storage service error: status %d, code %q: %s", e.Status, e.Code, msg)
}

// Is matches another *ServiceError with the same status, so sentinels like
// &ServiceError{Status: 404} work with errors.Is.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Status == e.Status
}

// errorEnvelope mirrors the service's XML error body.
type errorEnvelope struct {
	XMLName                   xml.Name `xml:"Error"`
	Code                      string   `xml:"Code"`
	Message                   string   `xml:"Message"`
	AuthenticationErrorDetail string   `xml:"AuthenticationErrorDetail"`
	QueryParameterName        string   `xml:"QueryParameterName"`
	QueryParameterValue       string   `xml:"QueryParameterValue"`
}

// DecodeError parses a non-2xx response into a *ServiceError. A body that is
// not a well-formed error envelope still yields a ServiceError carrying the
// status, URL and request id; the raw body becomes the message.
func DecodeError(resp *RawResponse) error {
	svcErr := &ServiceError{
		Status:    resp.Status,
		URL:       resp.URL,
		RequestID: resp.Header.Get("x-ms-request-id"),
	}

	var envelope errorEnvelope
	if err := xml.Unmarshal(resp.Body, &envelope); err != nil {
		if len(resp.Body) > 0 {
			svcErr.Message = []string{string(resp.Body)}
		}
		return svcErr
	}

	svcErr.Code = envelope.Code
	if envelope.Message != "" {
		svcErr.Message = strings.Split(envelope.Message, "\n")
	}
	svcErr.AuthenticationErrorDetail = envelope.AuthenticationErrorDetail
	svcErr.QueryParameterName = envelope.QueryParameterName
	svcErr.QueryParameterValue = envelope.QueryParameterValue
	return svcErr
}

// DecodeSuccess decodes a 2xx response body into v according to the response
// content type: JSON and XML bodies are unmarshaled, anything else requires a
// *[]byte to pass the body through. A nil v skips body decoding. Non-2xx
// responses are rejected with the parsed ServiceError, so callers can funnel
// every response through this one entry point.
func (c *Client) DecodeSuccess(resp *RawResponse, v any) error {
	if resp.Status < 200 || resp.Status > 299 {
		return DecodeError(resp)
	}
	if v == nil || len(resp.Body) == 0 {
		return nil
	}

	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "json"):
		if err := c.codec.Decode(resp.Body, v); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	case strings.Contains(contentType, "xml"):
		if err := c.xmlCodec.Decode(resp.Body, v); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	default:
		raw, ok := v.(*[]byte)
		if !ok {
			return fmt.Errorf("decode response: content type %q needs a *[]byte target: %w", contentType, ErrInvalidInput)
		}
		*raw = resp.Body
	}
	return nil
}

// Meta extracts the common response headers into a typed record. Absent
// headers leave their field zero or nil; absence is never an error.
func (r *RawResponse) Meta() ResponseMeta {
	meta := ResponseMeta{
		RequestID: r.Header.Get("x-ms-request-id"),
		ETag:      r.Header.Get("Etag"),
	}
	if meta.ETag == "" {
		meta.ETag = r.Header.Get("ETag")
	}
	meta.LastModified = parseHeaderTime(r.Header, "Last-Modified")
	meta.Date = parseHeaderTime(r.Header, "Date")
	meta.Expires = parseHeaderTime(r.Header, "Expires")
	return meta
}

func parseHeaderTime(h http.Header, name string) *time.Time {
	value := h.Get(name)
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC1123, value)
	if err != nil {
		return nil
	}
	return &t
}
