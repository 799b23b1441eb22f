package docstore

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-process Store. Documents are kept in their BSON form so
// decoding behaves like the MongoDB implementation. A stored document is never
// mutated: writers swap in a copy, so readers may decode outside the lock.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) collection(name string) *memoryCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{docs: make(map[string]bson.M)}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Collection(name string) Collection {
	return s.collection(name)
}

func (s *MemoryStore) EnsureIndex(ctx context.Context, collection string, unique bool, fields ...string) error {
	if len(fields) == 0 {
		return fmt.Errorf("index fields are required")
	}
	if !unique {
		return nil
	}
	c := s.collection(collection)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unique = append(c.unique, append([]string(nil), fields...))
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

type memoryCollection struct {
	mu     sync.RWMutex
	docs   map[string]bson.M
	order  []string
	unique [][]string
}

func (c *memoryCollection) Insert(ctx context.Context, doc interface{}) error {
	m, err := toDocument(doc)
	if err != nil {
		return err
	}
	id, ok := m["_id"].(string)
	if !ok || id == "" {
		return fmt.Errorf("document requires a string _id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.docs[id]; exists {
		return fmt.Errorf("%w: _id %s", ErrDuplicate, id)
	}
	for _, fields := range c.unique {
		for _, existing := range c.docs {
			if sameFields(existing, m, fields) {
				return fmt.Errorf("%w: %v", ErrDuplicate, fields)
			}
		}
	}
	c.docs[id] = m
	c.order = append(c.order, id)
	return nil
}

func (c *memoryCollection) FindByID(ctx context.Context, id string, out interface{}) error {
	c.mu.RLock()
	doc, ok := c.docs[id]
	c.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return decode(doc, out)
}

func (c *memoryCollection) Find(ctx context.Context, filter Filter, opts FindOptions, out interface{}) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("out must be a pointer to a slice")
	}
	want, err := normalizeFilter(filter)
	if err != nil {
		return err
	}

	c.mu.RLock()
	var matched []bson.M
	for _, id := range c.order {
		doc := c.docs[id]
		if matches(doc, want) {
			matched = append(matched, doc)
		}
	}
	c.mu.RUnlock()

	if opts.SortField != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			cmp := compareValues(matched[i][opts.SortField], matched[j][opts.SortField])
			if opts.SortDesc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if opts.Limit > 0 && int64(len(matched)) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	elemType := rv.Elem().Type().Elem()
	slice := reflect.MakeSlice(rv.Elem().Type(), 0, len(matched))
	for _, doc := range matched {
		elem := reflect.New(elemType)
		if err := decode(doc, elem.Interface()); err != nil {
			return err
		}
		slice = reflect.Append(slice, elem.Elem())
	}
	rv.Elem().Set(slice)
	return nil
}

func (c *memoryCollection) UpdateByID(ctx context.Context, id string, set map[string]interface{}) error {
	patch, err := toDocument(set)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}
	next := cloneDocument(doc)
	for key, value := range patch {
		next[key] = value
	}
	c.docs[id] = next
	return nil
}

func (c *memoryCollection) DeleteByID(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return ErrNotFound
	}
	c.remove(id)
	return nil
}

func (c *memoryCollection) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	want, err := normalizeFilter(filter)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []string
	for _, id := range c.order {
		if matches(c.docs[id], want) {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		c.remove(id)
	}
	return int64(len(ids)), nil
}

func (c *memoryCollection) AddToSet(ctx context.Context, id, field string, value interface{}) (bool, error) {
	normalized, err := normalizeValue(value)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	if !ok {
		return false, ErrNotFound
	}
	var current primitive.A
	switch existing := doc[field].(type) {
	case nil:
	case primitive.A:
		current = existing
	default:
		return false, fmt.Errorf("field %s is not an array", field)
	}
	for _, item := range current {
		if reflect.DeepEqual(item, normalized) {
			return false, nil
		}
	}
	items := make(primitive.A, 0, len(current)+1)
	items = append(items, current...)
	next := cloneDocument(doc)
	next[field] = append(items, normalized)
	c.docs[id] = next
	return true, nil
}

func (c *memoryCollection) remove(id string) {
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// cloneDocument copies the top level of doc. Nested values are shared and must
// be replaced, not modified.
func cloneDocument(doc bson.M) bson.M {
	next := make(bson.M, len(doc)+1)
	for key, value := range doc {
		next[key] = value
	}
	return next
}

func toDocument(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document failed: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode document failed: %w", err)
	}
	return m, nil
}

func decode(doc bson.M, out interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

// normalizeValue gives v the representation it would have after a BSON round trip.
func normalizeValue(v interface{}) (interface{}, error) {
	m, err := toDocument(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	return m["v"], nil
}

func normalizeFilter(filter Filter) (map[string][]interface{}, error) {
	out := make(map[string][]interface{}, len(filter))
	for key, value := range filter {
		values := []interface{}{value}
		if in, ok := value.(In); ok {
			values = []interface{}(in)
		}
		normalized := make([]interface{}, 0, len(values))
		for _, v := range values {
			n, err := normalizeValue(v)
			if err != nil {
				return nil, err
			}
			normalized = append(normalized, n)
		}
		out[key] = normalized
	}
	return out, nil
}

func matches(doc bson.M, filter map[string][]interface{}) bool {
	for key, candidates := range filter {
		got := doc[key]
		found := false
		for _, want := range candidates {
			if reflect.DeepEqual(got, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sameFields(a, b bson.M, fields []string) bool {
	for _, field := range fields {
		if !reflect.DeepEqual(a[field], b[field]) {
			return false
		}
	}
	return true
}

func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return cmp.Compare(av, bv)
		}
	case int32:
		if bv, ok := b.(int32); ok {
			return cmp.Compare(av, bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return cmp.Compare(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmp.Compare(av, bv)
		}
	case primitive.DateTime:
		if bv, ok := b.(primitive.DateTime); ok {
			return cmp.Compare(av, bv)
		}
	}
	return 0
}
