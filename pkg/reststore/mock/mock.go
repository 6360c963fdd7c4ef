// Package mock provides an in-memory REST resource speaking the same
// protocol a Store expects. It can be served over a real listener or used
// in-process through Transport.
package mock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/Ratio1/reststore_go/pkg/record"
)

// DefaultResource is the collection path served when none is configured.
const DefaultResource = "/records"

// Resource is an in-memory collection keyed by its primary key field.
type Resource struct {
	mu      sync.RWMutex
	records *orderedmap.OrderedMap[string, map[string]any]

	primaryKey string
	path       string
	newID      func() string
	router     chi.Router
}

// Option configures a Resource.
type Option func(*Resource)

// WithPrimaryKey sets the field used as the record identifier.
func WithPrimaryKey(field string) Option {
	return func(r *Resource) {
		if field = strings.TrimSpace(field); field != "" {
			r.primaryKey = field
		}
	}
}

// WithIDFunc overrides how identifiers are minted for created records that
// do not carry one.
func WithIDFunc(fn func() string) Option {
	return func(r *Resource) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// WithResource sets the collection path, e.g. "/users".
func WithResource(path string) Option {
	return func(r *Resource) {
		path = strings.TrimRight(strings.TrimSpace(path), "/")
		if path == "" {
			return
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		r.path = path
	}
}

// New creates an empty resource.
func New(opts ...Option) *Resource {
	r := &Resource{
		records:    orderedmap.New[string, map[string]any](),
		primaryKey: record.DefaultPrimaryKey,
		path:       DefaultResource,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}

	router := chi.NewRouter()
	router.Route(r.path, func(cr chi.Router) {
		cr.Get("/", r.handleList)
		cr.Post("/", r.handleCreate)
		cr.Get("/{id}", r.handleGet)
		cr.Put("/{id}", r.handleUpdate)
		cr.Patch("/{id}", r.handleUpdate)
		cr.Delete("/{id}", r.handleDelete)
	})
	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.router = router
	return r
}

// Path returns the collection path.
func (r *Resource) Path() string {
	return r.path
}

// PrimaryKey returns the identifier field.
func (r *Resource) PrimaryKey() string {
	return r.primaryKey
}

// Seed inserts records, minting identifiers for those without one.
func (r *Resource) Seed(records []map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range records {
		if rec == nil {
			return fmt.Errorf("mock: seed record %d is nil", i)
		}
		doc := cloneFields(rec)
		key, ok := record.KeyOf(doc[r.primaryKey])
		if !ok {
			key = r.newID()
			doc[r.primaryKey] = key
		}
		r.records.Set(key, doc)
	}
	return nil
}

// Records returns a copy of every stored record in insertion order.
func (r *Resource) Records() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]map[string]any, 0, r.records.Len())
	for pair := r.records.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, cloneFields(pair.Value))
	}
	return out
}

// Len returns the number of stored records.
func (r *Resource) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records.Len()
}

// ServeHTTP implements http.Handler.
func (r *Resource) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

// Transport returns a RoundTripper answering every request in-process.
func (r *Resource) Transport() http.RoundTripper {
	return roundTripper{handler: r}
}

type roundTripper struct {
	handler http.Handler
}

func (t roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	if req.Body == nil {
		req.Body = http.NoBody
	}
	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

func (r *Resource) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, r.Records())
}

func (r *Resource) handleGet(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	r.mu.RLock()
	doc, ok := r.records.Get(id)
	if ok {
		doc = cloneFields(doc)
	}
	r.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (r *Resource) handleCreate(w http.ResponseWriter, req *http.Request) {
	doc, err := decodeDocument(req.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.mu.Lock()
	key, ok := record.KeyOf(doc[r.primaryKey])
	if !ok {
		key = r.newID()
		doc[r.primaryKey] = key
	}
	if _, exists := r.records.Get(key); exists {
		r.mu.Unlock()
		writeError(w, http.StatusConflict, fmt.Sprintf("document %q already exists", key))
		return
	}
	r.records.Set(key, doc)
	out := cloneFields(doc)
	r.mu.Unlock()

	writeJSON(w, http.StatusCreated, out)
}

func (r *Resource) handleUpdate(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	changes, err := decodeDocument(req.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.mu.Lock()
	doc, ok := r.records.Get(id)
	if !ok {
		r.mu.Unlock()
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	merged := cloneFields(doc)
	for k, v := range changes {
		merged[k] = v
	}
	key, ok := record.KeyOf(merged[r.primaryKey])
	if !ok {
		key = id
		merged[r.primaryKey] = id
	}
	if key != id {
		if _, taken := r.records.Get(key); taken {
			r.mu.Unlock()
			writeError(w, http.StatusConflict, fmt.Sprintf("document %q already exists", key))
			return
		}
		r.records.Delete(id)
	}
	r.records.Set(key, merged)
	out := cloneFields(merged)
	r.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (r *Resource) handleDelete(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	r.mu.Lock()
	_, ok := r.records.Delete(id)
	r.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func decodeDocument(body io.Reader) (map[string]any, error) {
	if body == nil {
		return nil, errors.New("request body is required")
	}
	var doc map[string]any
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("request body is required")
		}
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if doc == nil {
		return nil, errors.New("request body must be an object")
	}
	return doc, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func cloneFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
