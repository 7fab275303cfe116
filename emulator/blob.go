package emulator

import (
	"encoding/xml"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const defaultBreakPeriod = 60 * time.Second

type leaseState struct {
	id       string
	infinite bool
	duration time.Duration
	until    time.Time
	breaking bool
	brokenAt time.Time
}

type blobState struct {
	content     []byte
	contentType string
	contentMD5  string
	metadata    map[string]string
	etag        string
	modified    time.Time
}

type containerState struct {
	metadata map[string]string
	access   string
	lease    *leaseState
	blobs    map[string]*blobState
	etag     string
	modified time.Time
}

// leaseStatus reports the container's lease headers given the current time.
func (c *containerState) leaseStatus(now time.Time) (status, state string) {
	l := c.lease
	switch {
	case l == nil:
		return "unlocked", "available"
	case l.breaking && now.Before(l.brokenAt):
		return "locked", "breaking"
	case l.breaking:
		return "unlocked", "broken"
	case !l.infinite && now.After(l.until):
		return "unlocked", "expired"
	default:
		return "locked", "leased"
	}
}

// leaseHeld reports whether the lease is currently active.
func (c *containerState) leaseHeld(now time.Time) bool {
	status, _ := c.leaseStatus(now)
	return status == "locked"
}

type containerEntryXML struct {
	Name       string                 `xml:"Name"`
	Properties containerPropertiesXML `xml:"Properties"`
	Metadata   *metadataXML           `xml:"Metadata,omitempty"`
}

type containerPropertiesXML struct {
	LastModified string `xml:"Last-Modified"`
	ETag         string `xml:"Etag"`
	LeaseStatus  string `xml:"LeaseStatus"`
	LeaseState   string `xml:"LeaseState"`
}

type containerListXML struct {
	XMLName    xml.Name            `xml:"EnumerationResults"`
	Prefix     string              `xml:"Prefix,omitempty"`
	MaxResults int                 `xml:"MaxResults,omitempty"`
	Containers []containerEntryXML `xml:"Containers>Container"`
	NextMarker string              `xml:"NextMarker"`
}

type blobEntryXML struct {
	Name       string            `xml:"Name"`
	Properties blobPropertiesXML `xml:"Properties"`
}

type blobPropertiesXML struct {
	LastModified  string `xml:"Last-Modified"`
	ETag          string `xml:"Etag"`
	ContentLength int64  `xml:"Content-Length"`
	ContentType   string `xml:"Content-Type"`
	ContentMD5    string `xml:"Content-MD5,omitempty"`
	BlobType      string `xml:"BlobType"`
}

type blobListXML struct {
	XMLName    xml.Name       `xml:"EnumerationResults"`
	Prefix     string         `xml:"Prefix,omitempty"`
	MaxResults int            `xml:"MaxResults,omitempty"`
	Delimiter  string         `xml:"Delimiter,omitempty"`
	Blobs      []blobEntryXML `xml:"Blobs>Blob"`
	NextMarker string         `xml:"NextMarker"`
}

// handleListContainers serves GET /?comp=list.
func (e *Emulator) handleListContainers(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("comp") != "list" {
		writeError(w, http.StatusBadRequest, "InvalidQueryParameterValue", "expected comp=list")
		return
	}

	prefix := r.URL.Query().Get("prefix")
	includeMetadata := strings.Contains(r.URL.Query().Get("include"), "metadata")
	maxResults, _ := strconv.Atoi(r.URL.Query().Get("maxresults"))

	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.containers))
	for name := range e.containers {
		if prefix == "" || strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	now := e.now()
	result := containerListXML{Prefix: prefix, MaxResults: maxResults}
	for i, name := range names {
		if maxResults > 0 && i >= maxResults {
			result.NextMarker = name
			break
		}
		c := e.containers[name]
		status, state := c.leaseStatus(now)
		entry := containerEntryXML{
			Name: name,
			Properties: containerPropertiesXML{
				LastModified: c.modified.UTC().Format(http.TimeFormat),
				ETag:         c.etag,
				LeaseStatus:  status,
				LeaseState:   state,
			},
		}
		if includeMetadata && len(c.metadata) > 0 {
			entry.Metadata = &metadataXML{entries: c.metadata}
		}
		result.Containers = append(result.Containers, entry)
	}

	writeXML(w, http.StatusOK, result)
}

// handleContainerPut serves container creation plus the comp=metadata,
// comp=acl and comp=lease sub-operations.
func (e *Emulator) handleContainerPut(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "container")

	e.mu.Lock()
	defer e.mu.Unlock()

	switch r.URL.Query().Get("comp") {
	case "lease":
		e.handleLease(w, r, name)
		return
	case "metadata":
		c, ok := e.containers[name]
		if !ok {
			writeError(w, http.StatusNotFound, "ContainerNotFound", "The specified container does not exist.")
			return
		}
		c.metadata = metadataFromRequest(r)
		c.etag = e.nextETag()
		c.modified = e.now()
		writeEmpty(w, http.StatusOK)
		return
	case "acl":
		c, ok := e.containers[name]
		if !ok {
			writeError(w, http.StatusNotFound, "ContainerNotFound", "The specified container does not exist.")
			return
		}
		c.access = r.Header.Get("x-ms-blob-public-access")
		writeEmpty(w, http.StatusOK)
		return
	}

	if _, exists := e.containers[name]; exists {
		writeError(w, http.StatusConflict, "ContainerAlreadyExists", "The specified container already exists.")
		return
	}
	e.containers[name] = &containerState{
		metadata: metadataFromRequest(r),
		access:   r.Header.Get("x-ms-blob-public-access"),
		blobs:    make(map[string]*blobState),
		etag:     e.nextETag(),
		modified: e.now(),
	}
	writeEmpty(w, http.StatusCreated)
}

func (e *Emulator) handleContainerDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "container")

	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.containers[name]
	if !ok {
		writeError(w, http.StatusNotFound, "ContainerNotFound", "The specified container does not exist.")
		return
	}
	if c.leaseHeld(e.now()) && r.Header.Get("x-ms-lease-id") != c.lease.id {
		writeError(w, http.StatusPreconditionFailed, "LeaseIdMissing",
			"There is currently a lease on the container and no lease ID was specified in the request.")
		return
	}
	delete(e.containers, name)
	writeEmpty(w, http.StatusAccepted)
}

// handleContainerGet serves GET /{container} for comp=list, comp=metadata and
// comp=acl.
func (e *Emulator) handleContainerGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "container")

	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.containers[name]
	if !ok {
		writeError(w, http.StatusNotFound, "ContainerNotFound", "The specified container does not exist.")
		return
	}

	switch r.URL.Query().Get("comp") {
	case "list":
		e.listBlobs(w, r, c)
	case "metadata":
		setMetadataHeaders(w, c.metadata)
		writeEmpty(w, http.StatusOK)
	case "acl":
		if c.access != "" {
			w.Header().Set("x-ms-blob-public-access", c.access)
		}
		writeEmpty(w, http.StatusOK)
	default:
		writeError(w, http.StatusBadRequest, "InvalidQueryParameterValue", "unsupported container read")
	}
}

func (e *Emulator) listBlobs(w http.ResponseWriter, r *http.Request, c *containerState) {
	prefix := r.URL.Query().Get("prefix")
	maxResults, _ := strconv.Atoi(r.URL.Query().Get("maxresults"))

	names := make([]string, 0, len(c.blobs))
	for name := range c.blobs {
		if prefix == "" || strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	result := blobListXML{
		Prefix:     prefix,
		MaxResults: maxResults,
		Delimiter:  r.URL.Query().Get("delimiter"),
	}
	for i, name := range names {
		if maxResults > 0 && i >= maxResults {
			result.NextMarker = name
			break
		}
		b := c.blobs[name]
		result.Blobs = append(result.Blobs, blobEntryXML{
			Name: name,
			Properties: blobPropertiesXML{
				LastModified:  b.modified.UTC().Format(http.TimeFormat),
				ETag:          b.etag,
				ContentLength: int64(len(b.content)),
				ContentType:   b.contentType,
				ContentMD5:    b.contentMD5,
				BlobType:      "BlockBlob",
			},
		})
	}

	writeXML(w, http.StatusOK, result)
}

// handleLease dispatches on x-ms-lease-action. Callers hold the lock.
func (e *Emulator) handleLease(w http.ResponseWriter, r *http.Request, name string) {
	c, ok := e.containers[name]
	if !ok {
		writeError(w, http.StatusNotFound, "ContainerNotFound", "The specified container does not exist.")
		return
	}

	now := e.now()
	action := r.Header.Get("x-ms-lease-action")
	leaseID := r.Header.Get("x-ms-lease-id")

	switch action {
	case "acquire":
		if c.leaseHeld(now) {
			writeError(w, http.StatusConflict, "LeaseAlreadyPresent",
				"There is already a lease present.")
			return
		}
		duration, err := strconv.Atoi(r.Header.Get("x-ms-lease-duration"))
		if err != nil || (duration != -1 && (duration < 15 || duration > 60)) {
			writeError(w, http.StatusBadRequest, "InvalidHeaderValue",
				"The lease duration must be -1 or between 15 and 60 seconds.")
			return
		}
		id := r.Header.Get("x-ms-proposed-lease-id")
		if id == "" {
			id = uuid.NewString()
		}
		c.lease = &leaseState{id: id, infinite: duration == -1}
		if duration != -1 {
			c.lease.duration = time.Duration(duration) * time.Second
			c.lease.until = now.Add(c.lease.duration)
		}
		w.Header().Set("x-ms-lease-id", id)
		writeEmpty(w, http.StatusCreated)

	case "renew":
		if c.lease == nil || c.lease.id != leaseID {
			writeError(w, http.StatusConflict, "LeaseIdMismatchWithLeaseOperation",
				"The lease ID specified did not match the lease ID for the container.")
			return
		}
		if !c.lease.infinite {
			c.lease.until = now.Add(c.lease.duration)
		}
		c.lease.breaking = false
		w.Header().Set("x-ms-lease-id", c.lease.id)
		writeEmpty(w, http.StatusOK)

	case "release":
		if c.lease == nil || c.lease.id != leaseID {
			writeError(w, http.StatusConflict, "LeaseIdMismatchWithLeaseOperation",
				"The lease ID specified did not match the lease ID for the container.")
			return
		}
		c.lease = nil
		writeEmpty(w, http.StatusOK)

	case "break":
		if !c.leaseHeld(now) {
			writeError(w, http.StatusConflict, "LeaseNotPresentWithLeaseOperation",
				"There is currently no lease on the container.")
			return
		}
		period := defaultBreakPeriod
		if v, err := strconv.Atoi(r.Header.Get("x-ms-lease-break-period")); err == nil && v >= 0 {
			period = time.Duration(v) * time.Second
		}
		c.lease.breaking = true
		c.lease.brokenAt = now.Add(period)
		w.Header().Set("x-ms-lease-time", strconv.Itoa(int(period/time.Second)))
		writeEmpty(w, http.StatusAccepted)

	case "change":
		proposed := r.Header.Get("x-ms-proposed-lease-id")
		if c.lease == nil || c.lease.id != leaseID || proposed == "" {
			writeError(w, http.StatusConflict, "LeaseIdMismatchWithLeaseOperation",
				"The lease ID specified did not match the lease ID for the container.")
			return
		}
		c.lease.id = proposed
		w.Header().Set("x-ms-lease-id", proposed)
		writeEmpty(w, http.StatusOK)

	default:
		writeError(w, http.StatusBadRequest, "InvalidHeaderValue", "unknown lease action")
	}
}

func (e *Emulator) handleBlobPut(w http.ResponseWriter, r *http.Request) {
	container := chi.URLParam(r, "container")
	name := chi.URLParam(r, "*")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidInput", "unreadable body")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.containers[container]
	if !ok {
		writeError(w, http.StatusNotFound, "ContainerNotFound", "The specified container does not exist.")
		return
	}
	if c.leaseHeld(e.now()) && r.Header.Get("x-ms-lease-id") != c.lease.id {
		writeError(w, http.StatusPreconditionFailed, "LeaseIdMissing",
			"There is currently a lease on the container and no lease ID was specified in the request.")
		return
	}

	if r.URL.Query().Get("comp") == "properties" {
		b, exists := c.blobs[name]
		if !exists {
			writeError(w, http.StatusNotFound, "BlobNotFound", "The specified blob does not exist.")
			return
		}
		if ct := r.Header.Get("x-ms-blob-content-type"); ct != "" {
			b.contentType = ct
		}
		b.etag = e.nextETag()
		b.modified = e.now()
		writeEmpty(w, http.StatusOK)
		return
	}

	existing, exists := c.blobs[name]
	if ifNone := r.Header.Get("If-None-Match"); ifNone == "*" && exists {
		writeError(w, http.StatusConflict, "BlobAlreadyExists", "The specified blob already exists.")
		return
	}
	if ifMatch := r.Header.Get("If-Match"); ifMatch != "" && (!exists || existing.etag != ifMatch) {
		writeError(w, http.StatusPreconditionFailed, "ConditionNotMet",
			"The condition specified using HTTP conditional header(s) is not met.")
		return
	}

	b := &blobState{
		content:     body,
		contentType: r.Header.Get("Content-Type"),
		contentMD5:  r.Header.Get("Content-MD5"),
		metadata:    metadataFromRequest(r),
		etag:        e.nextETag(),
		modified:    e.now(),
	}
	if b.contentType == "" {
		b.contentType = "application/octet-stream"
	}
	c.blobs[name] = b

	w.Header().Set("Etag", b.etag)
	writeEmpty(w, http.StatusCreated)
}

func (e *Emulator) handleBlobGet(w http.ResponseWriter, r *http.Request) {
	e.serveBlob(w, r, true)
}

func (e *Emulator) handleBlobHead(w http.ResponseWriter, r *http.Request) {
	e.serveBlob(w, r, false)
}

func (e *Emulator) serveBlob(w http.ResponseWriter, r *http.Request, withBody bool) {
	container := chi.URLParam(r, "container")
	name := chi.URLParam(r, "*")

	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.containers[container]
	if !ok {
		writeError(w, http.StatusNotFound, "ContainerNotFound", "The specified container does not exist.")
		return
	}
	b, ok := c.blobs[name]
	if !ok {
		writeError(w, http.StatusNotFound, "BlobNotFound", "The specified blob does not exist.")
		return
	}

	if ifMatch := r.Header.Get("If-Match"); ifMatch != "" && b.etag != ifMatch {
		writeError(w, http.StatusPreconditionFailed, "ConditionNotMet",
			"The condition specified using HTTP conditional header(s) is not met.")
		return
	}

	content := b.content
	status := http.StatusOK
	if rng := r.Header.Get("Range"); rng != "" {
		sliced, ok := sliceRange(content, rng)
		if !ok {
			writeError(w, http.StatusRequestedRangeNotSatisfiable, "InvalidRange",
				"The range specified is invalid for the current size of the resource.")
			return
		}
		content = sliced
		status = http.StatusPartialContent
	}

	w.Header().Set("Content-Type", b.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Header().Set("Etag", b.etag)
	w.Header().Set("Last-Modified", b.modified.UTC().Format(http.TimeFormat))
	lstatus, lstate := c.leaseStatus(e.now())
	w.Header().Set("x-ms-lease-status", lstatus)
	w.Header().Set("x-ms-lease-state", lstate)
	if b.contentMD5 != "" {
		w.Header().Set("Content-MD5", b.contentMD5)
	}
	setMetadataHeaders(w, b.metadata)
	w.Header().Set("x-ms-request-id", uuid.NewString())
	w.WriteHeader(status)
	if withBody {
		_, _ = w.Write(content)
	}
}

func (e *Emulator) handleBlobDelete(w http.ResponseWriter, r *http.Request) {
	container := chi.URLParam(r, "container")
	name := chi.URLParam(r, "*")

	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.containers[container]
	if !ok {
		writeError(w, http.StatusNotFound, "ContainerNotFound", "The specified container does not exist.")
		return
	}
	if c.leaseHeld(e.now()) && r.Header.Get("x-ms-lease-id") != c.lease.id {
		writeError(w, http.StatusPreconditionFailed, "LeaseIdMissing",
			"There is currently a lease on the container and no lease ID was specified in the request.")
		return
	}
	if _, ok := c.blobs[name]; !ok {
		writeError(w, http.StatusNotFound, "BlobNotFound", "The specified blob does not exist.")
		return
	}
	delete(c.blobs, name)
	writeEmpty(w, http.StatusAccepted)
}

// sliceRange applies a single "bytes=a-b" range to content.
func sliceRange(content []byte, rng string) ([]byte, bool) {
	spec, ok := strings.CutPrefix(rng, "bytes=")
	if !ok {
		return nil, false
	}
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, false
	}
	start, err := strconv.Atoi(startStr)
	if err != nil || start < 0 || start >= len(content) {
		return nil, false
	}
	end := len(content) - 1
	if endStr != "" {
		end, err = strconv.Atoi(endStr)
		if err != nil || end < start {
			return nil, false
		}
		if end >= len(content) {
			end = len(content) - 1
		}
	}
	return content[start : end+1], true
}
