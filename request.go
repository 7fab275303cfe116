package azstore

import (
	"bytes"
	"crypto/md5" //#nosec G501 -- Content-MD5 is a service-mandated integrity header, not a security primitive
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// ParamLocation names where AddParam routes a parameter.
type ParamLocation string

const (
	LocationQuery          ParamLocation = "query"
	LocationHeader         ParamLocation = "header"
	LocationBodyField      ParamLocation = "body-field"
	LocationMultipartField ParamLocation = "multipart-field"
	LocationMultipartFile  ParamLocation = "multipart-file"
	LocationFormField      ParamLocation = "form-field"
)

// OptionalParam is a named parameter value a caller may or may not supply.
// AddOptionalParams routes known names to their declared location and drops
// the rest.
type OptionalParam struct {
	Name  string
	Value any
}

type multipartPart struct {
	field       string
	value       []byte
	contentType string
	filePath    string // set for file parts; content is read at encode time
}

type multipartBody struct {
	parts []multipartPart
}

// Request accumulates everything needed to issue one storage service call:
// verb, path, ordered query parameters, headers, and an optional body. A
// Request is built through a fixed pipeline (method, path, params/headers/
// body), signed exactly once by the client, and discarded after one use.
// It is not safe for concurrent mutation; each call builds a fresh instance.
type Request struct {
	method    Method
	path      string
	query     []QueryParam
	headers   *Headers
	body      []byte
	hasBody   bool
	multipart *multipartBody
	form      map[string]string
	// parameters routed to an unrecognized location accumulate here
	extra map[ParamLocation][]QueryParam
}

// NewRequest returns an empty request ready for accumulation.
func NewRequest() *Request {
	return &Request{headers: NewHeaders()}
}

// SetMethod sets the HTTP verb. Set-once: a second call is a no-op, which
// guards composed pipelines against accidental overwrite.
func (r *Request) SetMethod(m Method) *Request {
	if r.method == "" {
		r.method = m
	}
	return r
}

// Method returns the verb set on the request.
func (r *Request) Method() Method { return r.method }

// SetPath sets the resource path. Set-once, like SetMethod.
func (r *Request) SetPath(path string) *Request {
	if r.path == "" {
		r.path = path
	}
	return r
}

// Path returns the resource path set on the request.
func (r *Request) Path() string { return r.path }

// Query returns the accumulated query parameters in insertion order.
func (r *Request) Query() []QueryParam { return r.query }

// Headers returns the request's header collection.
func (r *Request) Headers() *Headers { return r.headers }

// AddHeader upserts a header, overwriting any prior value for the same name.
func (r *Request) AddHeader(name, value string) *Request {
	r.headers.Set(name, value)
	return r
}

// AddMetadataHeaders upserts each pair as a service metadata header by
// prefixing the key with "x-ms-meta-".
func (r *Request) AddMetadataHeaders(metadata map[string]string) *Request {
	for k, v := range metadata {
		r.headers.Set("x-ms-meta-"+k, v)
	}
	return r
}

// SetBody stores the raw body and sets Content-Length to its byte length.
// A body, once attached, always travels with an accurate Content-Length;
// signing depends on that header being present.
func (r *Request) SetBody(body []byte) *Request {
	r.body = body
	r.hasBody = true
	r.headers.Set("Content-Length", strconv.Itoa(len(body)))
	return r
}

// Body returns the raw body and whether one was set.
func (r *Request) Body() ([]byte, bool) { return r.body, r.hasBody }

// AddContentMD5 computes the MD5 digest of the current body and sets the
// Content-MD5 header to its base64 encoding. Returns ErrInvalidState when no
// body has been set.
func (r *Request) AddContentMD5() error {
	if !r.hasBody {
		return fmt.Errorf("add content md5: no body set: %w", ErrInvalidState)
	}
	sum := md5.Sum(r.body) //#nosec G401 -- see import note
	r.headers.Set("Content-MD5", base64.StdEncoding.EncodeToString(sum[:]))
	return nil
}

// AddParam routes a single parameter to its location:
//
//   - LocationQuery appends to the ordered query list
//   - LocationHeader upserts a header
//   - LocationBodyField and LocationMultipartField lazily create a multipart
//     body and add the JSON-encoded value as a named part
//   - LocationMultipartFile lazily creates a multipart body and attaches the
//     file at the given path under the field name
//   - LocationFormField merges into a flat form-encoded body
//   - any other location accumulates the pair under that location name
//
// Values for query and header locations are stringified; other locations
// take the value as described above.
func (r *Request) AddParam(loc ParamLocation, key string, value any) *Request {
	switch loc {
	case LocationQuery:
		r.query = append(r.query, QueryParam{Key: key, Value: paramString(value)})
	case LocationHeader:
		r.headers.Set(key, paramString(value))
	case LocationBodyField, LocationMultipartField:
		encoded, err := json.Marshal(value)
		if err != nil {
			// json.Marshal only fails on unsupported types; drop the part
			// rather than poison the request
			return r
		}
		r.ensureMultipart().parts = append(r.multipart.parts, multipartPart{
			field:       key,
			value:       encoded,
			contentType: "application/json",
		})
	case LocationMultipartFile:
		r.ensureMultipart().parts = append(r.multipart.parts, multipartPart{
			field:    key,
			filePath: paramString(value),
		})
	case LocationFormField:
		if r.form == nil {
			r.form = make(map[string]string)
		}
		r.form[key] = paramString(value)
	default:
		if r.extra == nil {
			r.extra = make(map[ParamLocation][]QueryParam)
		}
		r.extra[loc] = append(r.extra[loc], QueryParam{Key: key, Value: paramString(value)})
	}
	return r
}

// AddParamIf applies AddParam only when cond is true. Callers use it to omit
// default-valued parameters, e.g. visibilitytimeout=0 must not appear on the
// wire.
func (r *Request) AddParamIf(cond bool, loc ParamLocation, key string, value any) *Request {
	if !cond {
		return r
	}
	return r.AddParam(loc, key, value)
}

// AddOptionalParams routes each supplied parameter through AddParam using the
// location table. Parameter names absent from the table are silently dropped;
// this is how callers apply optional parameters without per-operation
// boilerplate.
func (r *Request) AddOptionalParams(locations map[string]ParamLocation, params []OptionalParam) *Request {
	for _, p := range params {
		loc, ok := locations[p.Name]
		if !ok {
			continue
		}
		r.AddParam(loc, p.Name, p.Value)
	}
	return r
}

// RemoveEmptyHeaders strips headers whose value is the empty string. The
// service rejects some empty header values, and conditional headers like
// If-Match are commonly left unset.
func (r *Request) RemoveEmptyHeaders() *Request {
	for _, name := range r.headers.Names() {
		if r.headers.Get(name) == "" {
			r.headers.Del(name)
		}
	}
	return r
}

// ExtraParams returns the pairs accumulated under an unrecognized location.
func (r *Request) ExtraParams(loc ParamLocation) []QueryParam {
	return r.extra[loc]
}

func (r *Request) ensureMultipart() *multipartBody {
	if r.multipart == nil {
		r.multipart = &multipartBody{}
	}
	return r.multipart
}

// finalizeBody materializes multipart or form bodies into raw bytes and
// stamps Content-Length and Content-Type. Raw bodies are left as set. Called
// by the client before signing so the Content-Length invariant holds for
// every body kind.
func (r *Request) finalizeBody() error {
	switch {
	case r.multipart != nil:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for _, p := range r.multipart.parts {
			if p.filePath != "" {
				fw, err := w.CreateFormFile(p.field, filepath.Base(p.filePath))
				if err != nil {
					return fmt.Errorf("finalize body: %w", err)
				}
				content, err := os.ReadFile(p.filePath) //#nosec G304 -- path supplied by the calling operation
				if err != nil {
					return fmt.Errorf("finalize body: read %s: %w", p.filePath, err)
				}
				if _, err := fw.Write(content); err != nil {
					return fmt.Errorf("finalize body: %w", err)
				}
				continue
			}
			hdr := map[string][]string{
				"Content-Disposition": {fmt.Sprintf(`form-data; name=%q`, p.field)},
				"Content-Type":        {p.contentType},
			}
			fw, err := w.CreatePart(hdr)
			if err != nil {
				return fmt.Errorf("finalize body: %w", err)
			}
			if _, err := fw.Write(p.value); err != nil {
				return fmt.Errorf("finalize body: %w", err)
			}
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("finalize body: %w", err)
		}
		r.body = buf.Bytes()
		r.hasBody = true
		r.headers.Set("Content-Type", w.FormDataContentType())
		r.headers.Set("Content-Length", strconv.Itoa(len(r.body)))
	case r.form != nil:
		values := url.Values{}
		for k, v := range r.form {
			values.Set(k, v)
		}
		r.body = []byte(values.Encode())
		r.hasBody = true
		if !r.headers.Has("Content-Type") {
			r.headers.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		r.headers.Set("Content-Length", strconv.Itoa(len(r.body)))
	}
	return nil
}

func paramString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
