package reststore

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"sync"

	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"

	"github.com/Ratio1/reststore_go/internal/metrics"
	"github.com/Ratio1/reststore_go/pkg/record"
)

// Store mirrors one REST resource in memory. All methods are safe for
// concurrent use.
type Store struct {
	model record.Model
	exec  *Executor
	cfg   *config
	locks keyLocks

	mu    sync.RWMutex
	cache *cache
	ready bool

	progMu   sync.Mutex
	programs map[string]*vm.Program
}

// FetchOptions overrides the request issued by Fetch.
type FetchOptions struct {
	Method string
	URL    Location
	Body   any
	Header http.Header
}

// New creates a Store for model. A nil model stores records keyed by "id".
func New(model record.Model, opts ...Option) *Store {
	return NewWithExecutor(model, NewExecutor(opts...))
}

// NewWithExecutor creates a Store sharing an existing Executor and its
// configuration.
func NewWithExecutor(model record.Model, exec *Executor) *Store {
	if model == nil {
		model = record.NewSchema(record.DefaultPrimaryKey)
	}
	if exec == nil {
		exec = NewExecutor()
	}
	return &Store{
		model:    model,
		exec:     exec,
		cfg:      exec.cfg,
		cache:    newCache(),
		programs: make(map[string]*vm.Program),
	}
}

// Model returns the model records are hydrated with.
func (s *Store) Model() record.Model {
	return s.model
}

// Executor exposes the underlying request executor.
func (s *Store) Executor() *Executor {
	return s.exec
}

// Ready reports whether the cache has been populated by Use or Fetch.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Len returns the number of cached records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.len()
}

// Fetch loads the whole collection from the server and replaces the cache
// with it. On failure the cache and the ready flag are left untouched.
func (s *Store) Fetch(ctx context.Context, opts *FetchOptions) error {
	req := &Request{Method: http.MethodGet}
	if opts != nil {
		if opts.Method != "" {
			req.Method = opts.Method
		}
		req.URL = opts.URL
		req.Body = opts.Body
		req.Header = opts.Header
	}

	unlock := s.locks.lockAll()
	added, err := s.fetch(ctx, req)
	unlock()
	if err != nil {
		return err
	}
	s.notifyAdd(added...)
	return nil
}

func (s *Store) fetch(ctx context.Context, req *Request) ([]record.Record, error) {
	payload, err := s.exec.Execute(ctx, req)
	if err != nil {
		return nil, withOp(err, "fetch")
	}
	if payload == nil {
		return nil, newError(KindHTTPResponse, "fetch", "response has no payload")
	}
	added, err := s.use(payload)
	if err != nil {
		return nil, &Error{Kind: KindHTTPResponse, Op: "fetch", Message: "response is not a collection", Err: err}
	}
	return added, nil
}

// Use replaces the cache with data without contacting the server. data may be
// a sequence of raw records, a mapping from key to raw record, or a string or
// byte slice holding either in the store's codec format. Add observers run
// once the cache is replaced and the store is unlocked.
func (s *Store) Use(ctx context.Context, data any) error {
	if err := ctxErr(ctx, "use"); err != nil {
		return err
	}
	unlock := s.locks.lockAll()
	added, err := s.use(data)
	unlock()
	if err != nil {
		return err
	}
	s.notifyAdd(added...)
	return nil
}

// use swaps in the hydrated cache and returns the records it added.
func (s *Store) use(data any) ([]record.Record, error) {
	next, err := s.hydrateAll(data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache = next
	s.ready = true
	n := next.len()
	s.mu.Unlock()

	metrics.SetCacheSize(s.cfg.metrics, s.cfg.name, n)
	s.cfg.logger.Debug("cache replaced", "resource", s.cfg.name, "records", n)
	return next.snapshot(), nil
}

// All returns every cached record in cache order.
func (s *Store) All(ctx context.Context) ([]record.Record, error) {
	if err := ctxErr(ctx, "all"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.snapshot(), nil
}

// Find returns the record cached under id. It never contacts the server.
func (s *Store) Find(ctx context.Context, id any) (record.Record, error) {
	if err := ctxErr(ctx, "find"); err != nil {
		return nil, err
	}
	key, ok := record.KeyOf(id)
	if !ok {
		return nil, newError(KindNotFound, "find", "document not found")
	}
	s.mu.RLock()
	r, ok := s.cache.get(key)
	s.mu.RUnlock()
	if !ok {
		return nil, newError(KindNotFound, "find", "document %q not found", key)
	}
	return r, nil
}

// Save creates (POST) new records and updates (PUT) persisted ones. Fields
// returned by the server are copied onto the record, which is returned
// alongside any error. A response without the primary key fails with
// HttpResponseError and leaves the cache untouched.
func (s *Store) Save(ctx context.Context, v any) (record.Record, error) {
	if isNil(v) {
		return nil, argumentError("save", "cannot save nil record")
	}
	rec, err := record.Hydrate(s.model, v)
	if err != nil {
		return nil, &Error{Kind: KindArgument, Op: "save", Message: "hydrate record", Err: err}
	}

	isNew := rec.IsNew()
	oldKey, _ := record.PrimaryKeyOf(s.model, rec)

	lockKey := oldKey
	if isNew || lockKey == "" {
		lockKey = clientKey(rec)
	}
	unlock := s.locks.lockKey(lockKey)
	added, err := s.save(ctx, rec, isNew, oldKey)
	unlock()
	if err != nil {
		return rec, err
	}
	if added {
		s.notifyAdd(rec)
	}
	return rec, nil
}

// save runs the exchange and commits the result. It reports whether rec was
// added to the cache.
func (s *Store) save(ctx context.Context, rec record.Record, isNew bool, oldKey string) (bool, error) {
	primaryKey := s.model.PrimaryKey()
	req := &Request{Method: http.MethodPost, Body: rec.Fields()}
	if !isNew {
		req.Method = http.MethodPut
		req.ID = oldKey
	}

	payload, err := s.exec.Execute(ctx, req)
	if err != nil {
		return false, withOp(err, "save")
	}

	fields, ok := payload.(map[string]any)
	if ok {
		_, ok = record.KeyOf(fields[primaryKey])
	}
	if !ok {
		return false, newError(KindHTTPResponse, "save", "response is missing primary key %q and cannot be used", primaryKey)
	}

	if m, ok := rec.(interface{ Merge(map[string]any) }); ok {
		m.Merge(fields)
	} else {
		for field, value := range fields {
			rec.Set(field, value)
		}
	}
	newKey, _ := record.PrimaryKeyOf(s.model, rec)

	added := false
	s.mu.Lock()
	switch {
	case isNew:
		s.cache.put(newKey, rec)
		added = true
	case newKey != oldKey:
		if s.cache.remove(oldKey) {
			s.cache.put(newKey, rec)
		}
	default:
		if _, cached := s.cache.get(oldKey); cached {
			s.cache.put(oldKey, rec)
		}
	}
	n := s.cache.len()
	s.mu.Unlock()

	metrics.SetCacheSize(s.cfg.metrics, s.cfg.name, n)
	return added, nil
}

// Delete removes a record from the server. v is a Record, a raw record (map
// or struct) or a bare identifier. Under DeleteOptimistic the cache entry is
// evicted before the request and is not restored if the request fails.
func (s *Store) Delete(ctx context.Context, v any) error {
	key, err := s.deleteKey(v)
	if err != nil {
		return err
	}

	unlock := s.locks.lockKey(key)
	defer unlock()

	if s.cfg.deletePolicy == DeleteOptimistic {
		s.evict(key)
	}
	if _, err := s.exec.Execute(ctx, &Request{Method: http.MethodDelete, ID: key}); err != nil {
		return withOp(err, "delete")
	}
	if s.cfg.deletePolicy == DeleteConfirmed {
		s.evict(key)
	}
	return nil
}

func (s *Store) deleteKey(v any) (string, error) {
	if isNil(v) {
		return "", argumentError("delete", "DELETE requests require the `id` option")
	}
	var (
		key string
		ok  bool
	)
	switch t := v.(type) {
	case record.Record:
		key, ok = record.PrimaryKeyOf(s.model, t)
	case map[string]any:
		key, ok = record.KeyOf(t[s.model.PrimaryKey()])
	default:
		if isRecordShaped(v) {
			fields, err := record.ToMap(v)
			if err != nil {
				return "", &Error{Kind: KindArgument, Op: "delete", Message: "read record", Err: err}
			}
			key, ok = record.KeyOf(fields[s.model.PrimaryKey()])
			break
		}
		key, ok = record.KeyOf(v)
	}
	if !ok {
		return "", argumentError("delete", "DELETE requests require the `id` option")
	}
	return key, nil
}

func (s *Store) evict(key string) {
	s.mu.Lock()
	s.cache.remove(key)
	n := s.cache.len()
	s.mu.Unlock()
	metrics.SetCacheSize(s.cfg.metrics, s.cfg.name, n)
}

// notifyAdd must be called with no store locks held: observers may call back
// into the store.
func (s *Store) notifyAdd(added ...record.Record) {
	n, ok := s.model.(record.AddNotifier)
	if !ok {
		return
	}
	for _, r := range added {
		n.NotifyAdd(r)
	}
}

// hydrateAll builds a fresh cache from data. It never touches s.cache.
func (s *Store) hydrateAll(data any) (*cache, error) {
	switch t := data.(type) {
	case nil:
		return nil, argumentError("use", "data must not be nil")
	case string:
		return s.hydrateEncoded([]byte(t))
	case []byte:
		return s.hydrateEncoded(t)
	case map[string]any:
		return s.hydrateMapping(t)
	case []record.Record:
		items := make([]any, len(t))
		for i, r := range t {
			items[i] = r
		}
		return s.hydrateSequence(items)
	case []map[string]any:
		items := make([]any, len(t))
		for i, m := range t {
			items[i] = m
		}
		return s.hydrateSequence(items)
	case []any:
		return s.hydrateSequence(t)
	}

	rv := reflect.ValueOf(data)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return s.hydrateSequence(items)
	}
	return nil, argumentError("use", "cannot use %T as a collection", data)
}

func (s *Store) hydrateEncoded(raw []byte) (*cache, error) {
	decoded, err := s.cfg.codec.Decode(raw)
	if err != nil {
		return nil, &Error{Kind: KindArgument, Op: "use", Message: "decode data", Err: err}
	}
	if _, isString := decoded.(string); isString || decoded == nil {
		return nil, argumentError("use", "decoded data is not a collection")
	}
	return s.hydrateAll(decoded)
}

func (s *Store) hydrateSequence(items []any) (*cache, error) {
	next := newCache()
	for i, item := range items {
		r, err := record.Hydrate(s.model, item)
		if err != nil {
			return nil, &Error{Kind: KindArgument, Op: "use", Message: "hydrate item", Err: err}
		}
		key, ok := record.PrimaryKeyOf(s.model, r)
		if !ok {
			return nil, argumentError("use", "item %d is missing primary key %q", i, s.model.PrimaryKey())
		}
		next.put(key, r)
	}
	return next, nil
}

func (s *Store) hydrateMapping(m map[string]any) (*cache, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	next := newCache()
	for _, k := range keys {
		value := m[k]
		if !isRecordShaped(value) {
			return nil, argumentError("use", "mapping entry %q is not a record", k)
		}
		r, err := record.Hydrate(s.model, value)
		if err != nil {
			return nil, &Error{Kind: KindArgument, Op: "use", Message: "hydrate entry " + k, Err: err}
		}
		key, ok := record.PrimaryKeyOf(s.model, r)
		if !ok {
			r.Set(s.model.PrimaryKey(), k)
			key = k
		}
		next.put(key, r)
	}
	return next, nil
}

func isRecordShaped(v any) bool {
	if _, ok := v.(record.Record); ok {
		return true
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	return rv.IsValid() && (rv.Kind() == reflect.Map || rv.Kind() == reflect.Struct)
}

// clientKey identifies a record that has no primary key yet.
func clientKey(r record.Record) string {
	if c, ok := r.(interface{ ClientID() string }); ok {
		return "client:" + c.ClientID()
	}
	if reflect.ValueOf(r).Kind() == reflect.Ptr {
		return fmt.Sprintf("client:%p", r)
	}
	return "client:" + uuid.NewString()
}

// ctxErr reports an abandoned context the way the executor does: as a
// ConnectionError wrapping the context error.
func ctxErr(ctx context.Context, op string) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &Error{Kind: KindConnection, Op: op, Message: "context done", Err: err}
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
