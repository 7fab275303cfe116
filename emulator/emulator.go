// Package emulator provides an in-memory storage emulator speaking the same
// wire protocol the client signs against: SharedKey authentication, XML error
// envelopes, queue message semantics, and container/blob operations with
// leasing. It exists for local development and for exercising the client
// end-to-end without a real account.
package emulator

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/sagarc03/azstore/config"
	"github.com/sagarc03/azstore/credentials"
)

// DefaultAccount is the well-known development account the emulator serves.
const DefaultAccount = "devstoreaccount1"

// Config configures an Emulator.
type Config struct {
	// Account is the storage account name served. Defaults to DefaultAccount.
	Account string
	// Keys resolves account keys for SharedKey verification. A nil store
	// disables authentication entirely.
	Keys credentials.Store
	// CORS configures the cross-origin middleware on both routers.
	CORS config.CORSConfig
	// Logger receives request-level debug logs. Defaults to slog.Default().
	Logger *slog.Logger
	// Clock is the timestamp source; defaults to time.Now. Injected so tests
	// can drive visibility timeouts and lease expiry.
	Clock func() time.Time
}

// Emulator holds the in-memory state for one storage account and serves the
// queue and blob wire surfaces over separate routers, mirroring the real
// per-service endpoints.
type Emulator struct {
	account string
	keys    credentials.Store
	corsCfg config.CORSConfig
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	queues     map[string]*queueState
	containers map[string]*containerState
	etagSeq    uint64
}

// New constructs an Emulator.
func New(cfg Config) *Emulator {
	e := &Emulator{
		account:    cfg.Account,
		keys:       cfg.Keys,
		corsCfg:    cfg.CORS,
		logger:     cfg.Logger,
		now:        cfg.Clock,
		queues:     make(map[string]*queueState),
		containers: make(map[string]*containerState),
	}
	if e.account == "" {
		e.account = DefaultAccount
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// QueueRouter returns the handler serving the queue service surface. Routes
// are mounted under the account path segment, matching the emulator URL shape
// clients sign against.
func (e *Emulator) QueueRouter() http.Handler {
	r := chi.NewRouter()
	e.applyCORS(r)

	r.Route("/"+e.account, func(r chi.Router) {
		r.Use(e.authMiddleware())
		r.Get("/", e.handleListQueues)
		r.Put("/{queue}", e.handleQueuePut)
		r.Delete("/{queue}", e.handleQueueDelete)
		r.Get("/{queue}", e.handleQueueGet)
		r.Post("/{queue}/messages", e.handlePutMessage)
		r.Get("/{queue}/messages", e.handleGetMessages)
		r.Delete("/{queue}/messages", e.handleClearMessages)
		r.Put("/{queue}/messages/{id}", e.handleUpdateMessage)
		r.Delete("/{queue}/messages/{id}", e.handleDeleteMessage)
	})

	return r
}

// BlobRouter returns the handler serving the blob service surface.
func (e *Emulator) BlobRouter() http.Handler {
	r := chi.NewRouter()
	e.applyCORS(r)

	r.Route("/"+e.account, func(r chi.Router) {
		r.Use(e.authMiddleware())
		r.Get("/", e.handleListContainers)
		r.Put("/{container}", e.handleContainerPut)
		r.Delete("/{container}", e.handleContainerDelete)
		r.Get("/{container}", e.handleContainerGet)
		r.Put("/{container}/*", e.handleBlobPut)
		r.Get("/{container}/*", e.handleBlobGet)
		r.Head("/{container}/*", e.handleBlobHead)
		r.Delete("/{container}/*", e.handleBlobDelete)
	})

	return r
}

func (e *Emulator) applyCORS(r chi.Router) {
	if !e.corsCfg.Enabled {
		return
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   e.corsCfg.AllowedOrigins,
		AllowedMethods:   e.corsCfg.AllowedMethods,
		AllowedHeaders:   e.corsCfg.AllowedHeaders,
		ExposedHeaders:   e.corsCfg.ExposedHeaders,
		AllowCredentials: e.corsCfg.AllowCredentials,
		MaxAge:           e.corsCfg.MaxAge,
	}))
}

// nextETag returns a fresh opaque entity tag.
func (e *Emulator) nextETag() string {
	e.etagSeq++
	return fmt.Sprintf("%q", "0x"+strconv.FormatUint(e.etagSeq, 16))
}

// errorBody mirrors the service's XML error envelope.
type errorBody struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

// writeError emits the XML error envelope with a fresh request id.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("x-ms-request-id", uuid.NewString())
	w.WriteHeader(status)
	body, err := xml.Marshal(errorBody{Code: code, Message: message})
	if err != nil {
		return
	}
	_, _ = w.Write(body)
}

// writeXML emits a marshaled XML document with a fresh request id.
func writeXML(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("x-ms-request-id", uuid.NewString())
	body, err := xml.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

// writeEmpty emits a bodyless response with a fresh request id.
func writeEmpty(w http.ResponseWriter, status int) {
	w.Header().Set("x-ms-request-id", uuid.NewString())
	w.WriteHeader(status)
}

// metadataFromRequest lifts x-ms-meta-* request headers into a plain map.
func metadataFromRequest(r *http.Request) map[string]string {
	out := make(map[string]string)
	for name, values := range r.Header {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, "x-ms-meta-") && len(values) > 0 {
			out[strings.TrimPrefix(lower, "x-ms-meta-")] = values[0]
		}
	}
	return out
}

func setMetadataHeaders(w http.ResponseWriter, metadata map[string]string) {
	for k, v := range metadata {
		w.Header().Set("x-ms-meta-"+k, v)
	}
}
