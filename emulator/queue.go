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

const (
	defaultVisibilityTimeout = 30 * time.Second
	defaultMessageTTL        = 7 * 24 * time.Hour
	maxMessagesPerFetch      = 32
)

type queueMessage struct {
	id           string
	text         string
	inserted     time.Time
	expires      time.Time
	nextVisible  time.Time
	popReceipt   string
	dequeueCount int
}

type queueState struct {
	metadata map[string]string
	messages []*queueMessage
}

// queueMessageXML is the wire form of one queue message.
type queueMessageXML struct {
	XMLName         xml.Name `xml:"QueueMessage"`
	MessageID       string   `xml:"MessageId"`
	InsertionTime   string   `xml:"InsertionTime"`
	ExpirationTime  string   `xml:"ExpirationTime"`
	PopReceipt      string   `xml:"PopReceipt,omitempty"`
	TimeNextVisible string   `xml:"TimeNextVisible,omitempty"`
	DequeueCount    int      `xml:"DequeueCount"`
	MessageText     string   `xml:"MessageText"`
}

type queueMessagesListXML struct {
	XMLName  xml.Name          `xml:"QueueMessagesList"`
	Messages []queueMessageXML `xml:"QueueMessage"`
}

type putMessageXML struct {
	XMLName xml.Name `xml:"QueueMessage"`
	Text    string   `xml:"MessageText"`
}

type queueEntryXML struct {
	Name     string       `xml:"Name"`
	Metadata *metadataXML `xml:"Metadata,omitempty"`
}

type metadataXML struct {
	entries map[string]string
}

func (m *metadataXML) MarshalXML(enc *xml.Encoder, start xml.StartElement) error {
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		el := xml.StartElement{Name: xml.Name{Local: k}}
		if err := enc.EncodeElement(m.entries[k], el); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

type queueListXML struct {
	XMLName    xml.Name        `xml:"EnumerationResults"`
	Prefix     string          `xml:"Prefix,omitempty"`
	MaxResults int             `xml:"MaxResults,omitempty"`
	Queues     []queueEntryXML `xml:"Queues>Queue"`
	NextMarker string          `xml:"NextMarker"`
}

// handleListQueues serves GET /?comp=list.
func (e *Emulator) handleListQueues(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("comp") != "list" {
		writeError(w, http.StatusBadRequest, "InvalidQueryParameterValue", "expected comp=list")
		return
	}

	prefix := r.URL.Query().Get("prefix")
	includeMetadata := strings.Contains(r.URL.Query().Get("include"), "metadata")
	maxResults, _ := strconv.Atoi(r.URL.Query().Get("maxresults"))

	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.queues))
	for name := range e.queues {
		if prefix == "" || strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	result := queueListXML{Prefix: prefix, MaxResults: maxResults}
	for i, name := range names {
		if maxResults > 0 && i >= maxResults {
			result.NextMarker = name
			break
		}
		entry := queueEntryXML{Name: name}
		if includeMetadata && len(e.queues[name].metadata) > 0 {
			entry.Metadata = &metadataXML{entries: e.queues[name].metadata}
		}
		result.Queues = append(result.Queues, entry)
	}

	writeXML(w, http.StatusOK, result)
}

// handleQueuePut serves queue creation and comp=metadata updates.
func (e *Emulator) handleQueuePut(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")
	metadata := metadataFromRequest(r)

	e.mu.Lock()
	defer e.mu.Unlock()

	if r.URL.Query().Get("comp") == "metadata" {
		q, ok := e.queues[name]
		if !ok {
			writeError(w, http.StatusNotFound, "QueueNotFound", "The specified queue does not exist.")
			return
		}
		q.metadata = metadata
		writeEmpty(w, http.StatusNoContent)
		return
	}

	if q, exists := e.queues[name]; exists {
		// Re-creating with identical metadata is a no-op; differing metadata
		// conflicts.
		if equalMetadata(q.metadata, metadata) {
			writeEmpty(w, http.StatusNoContent)
			return
		}
		writeError(w, http.StatusConflict, "QueueAlreadyExists", "The specified queue already exists.")
		return
	}

	e.queues[name] = &queueState{metadata: metadata}
	writeEmpty(w, http.StatusCreated)
}

func (e *Emulator) handleQueueDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.queues[name]; !ok {
		writeError(w, http.StatusNotFound, "QueueNotFound", "The specified queue does not exist.")
		return
	}
	delete(e.queues, name)
	writeEmpty(w, http.StatusNoContent)
}

// handleQueueGet serves GET /{queue}?comp=metadata.
func (e *Emulator) handleQueueGet(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("comp") != "metadata" {
		writeError(w, http.StatusBadRequest, "InvalidQueryParameterValue", "expected comp=metadata")
		return
	}
	name := chi.URLParam(r, "queue")

	e.mu.Lock()
	defer e.mu.Unlock()

	q, ok := e.queues[name]
	if !ok {
		writeError(w, http.StatusNotFound, "QueueNotFound", "The specified queue does not exist.")
		return
	}

	visible := 0
	now := e.now()
	for _, m := range q.messages {
		if now.Before(m.expires) {
			visible++
		}
	}
	w.Header().Set("x-ms-approximate-messages-count", strconv.Itoa(visible))
	setMetadataHeaders(w, q.metadata)
	writeEmpty(w, http.StatusOK)
}

func (e *Emulator) handlePutMessage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidXmlDocument", "unreadable body")
		return
	}
	var msg putMessageXML
	if err := xml.Unmarshal(body, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidXmlDocument", "malformed QueueMessage body")
		return
	}

	now := e.now()
	ttl := defaultMessageTTL
	if v, convErr := strconv.Atoi(r.URL.Query().Get("messagettl")); convErr == nil && v > 0 {
		ttl = time.Duration(v) * time.Second
	}
	visible := now
	if v, convErr := strconv.Atoi(r.URL.Query().Get("visibilitytimeout")); convErr == nil && v > 0 {
		visible = now.Add(time.Duration(v) * time.Second)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	q, ok := e.queues[name]
	if !ok {
		writeError(w, http.StatusNotFound, "QueueNotFound", "The specified queue does not exist.")
		return
	}

	q.messages = append(q.messages, &queueMessage{
		id:          uuid.NewString(),
		text:        msg.Text,
		inserted:    now,
		expires:     now.Add(ttl),
		nextVisible: visible,
	})
	writeEmpty(w, http.StatusCreated)
}

// handleGetMessages serves both dequeue and peekonly=true reads.
func (e *Emulator) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")
	peek := r.URL.Query().Get("peekonly") == "true"

	count := 1
	if v, err := strconv.Atoi(r.URL.Query().Get("numofmessages")); err == nil && v > 0 {
		count = min(v, maxMessagesPerFetch)
	}
	visibility := defaultVisibilityTimeout
	if v, err := strconv.Atoi(r.URL.Query().Get("visibilitytimeout")); err == nil && v > 0 {
		visibility = time.Duration(v) * time.Second
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	q, ok := e.queues[name]
	if !ok {
		writeError(w, http.StatusNotFound, "QueueNotFound", "The specified queue does not exist.")
		return
	}

	now := e.now()
	var result queueMessagesListXML
	for _, m := range q.messages {
		if len(result.Messages) >= count {
			break
		}
		if now.Before(m.nextVisible) || !now.Before(m.expires) {
			continue
		}

		entry := queueMessageXML{
			MessageID:      m.id,
			InsertionTime:  m.inserted.UTC().Format(http.TimeFormat),
			ExpirationTime: m.expires.UTC().Format(http.TimeFormat),
			DequeueCount:   m.dequeueCount,
			MessageText:    m.text,
		}
		if !peek {
			m.popReceipt = uuid.NewString()
			m.nextVisible = now.Add(visibility)
			m.dequeueCount++
			entry.PopReceipt = m.popReceipt
			entry.TimeNextVisible = m.nextVisible.UTC().Format(http.TimeFormat)
			entry.DequeueCount = m.dequeueCount
		}
		result.Messages = append(result.Messages, entry)
	}

	writeXML(w, http.StatusOK, result)
}

func (e *Emulator) handleUpdateMessage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")
	id := chi.URLParam(r, "id")
	popReceipt := r.URL.Query().Get("popreceipt")

	visibility := time.Duration(0)
	if v, err := strconv.Atoi(r.URL.Query().Get("visibilitytimeout")); err == nil && v > 0 {
		visibility = time.Duration(v) * time.Second
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidXmlDocument", "unreadable body")
		return
	}
	var msg putMessageXML
	if len(body) > 0 {
		if err := xml.Unmarshal(body, &msg); err != nil {
			writeError(w, http.StatusBadRequest, "InvalidXmlDocument", "malformed QueueMessage body")
			return
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m, errCode, status := e.findMessage(name, id, popReceipt)
	if errCode != "" {
		writeError(w, status, errCode, "message lookup failed")
		return
	}

	if msg.Text != "" {
		m.text = msg.Text
	}
	m.popReceipt = uuid.NewString()
	m.nextVisible = e.now().Add(visibility)

	w.Header().Set("x-ms-popreceipt", m.popReceipt)
	w.Header().Set("x-ms-time-next-visible", m.nextVisible.UTC().Format(http.TimeFormat))
	writeEmpty(w, http.StatusNoContent)
}

func (e *Emulator) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")
	id := chi.URLParam(r, "id")
	popReceipt := r.URL.Query().Get("popreceipt")

	e.mu.Lock()
	defer e.mu.Unlock()

	q, ok := e.queues[name]
	if !ok {
		writeError(w, http.StatusNotFound, "QueueNotFound", "The specified queue does not exist.")
		return
	}
	for i, m := range q.messages {
		if m.id == id {
			if m.popReceipt != popReceipt {
				writeError(w, http.StatusBadRequest, "InvalidPopReceipt", "The specified pop receipt did not match.")
				return
			}
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			writeEmpty(w, http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "MessageNotFound", "The specified message does not exist.")
}

func (e *Emulator) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")

	e.mu.Lock()
	defer e.mu.Unlock()

	q, ok := e.queues[name]
	if !ok {
		writeError(w, http.StatusNotFound, "QueueNotFound", "The specified queue does not exist.")
		return
	}
	q.messages = nil
	writeEmpty(w, http.StatusNoContent)
}

// findMessage locates a message by id and pop receipt. Callers hold the lock.
func (e *Emulator) findMessage(queue, id, popReceipt string) (*queueMessage, string, int) {
	q, ok := e.queues[queue]
	if !ok {
		return nil, "QueueNotFound", http.StatusNotFound
	}
	for _, m := range q.messages {
		if m.id == id {
			if m.popReceipt != popReceipt {
				return nil, "InvalidPopReceipt", http.StatusBadRequest
			}
			return m, "", 0
		}
	}
	return nil, "MessageNotFound", http.StatusNotFound
}

func equalMetadata(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
