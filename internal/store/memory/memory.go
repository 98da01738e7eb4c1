// Package memory implementa store.Store en proceso sobre go-cache.
// Útil para desarrollo (serve --store=memory) y testing.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/widgetauth/internal/store"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

func init() {
	store.RegisterDriver(driver{})
}

type driver struct{}

func (driver) Name() string { return "memory" }

func (driver) Open(context.Context, store.Config) (store.Store, error) {
	return New(), nil
}

type document map[string]any

// Store guarda documentos JSON por colección. Las keys son "<coll>/<_id>".
// Los documentos nunca expiran.
type Store struct {
	// mu serializa check-then-act (create con _id, update, delete); go-cache ya es
	// thread-safe para operaciones individuales.
	mu  sync.Mutex
	c   *gocache.Cache
	now func() time.Time

	// Fail, si no es nil, se llama antes de cada operación: permite simular caídas.
	Fail func(op, coll string) error
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		c:   gocache.New(gocache.NoExpiration, 0),
		now: time.Now,
	}
}

func key(coll, id string) string { return coll + "/" + id }

func (s *Store) fail(op, coll string) error {
	if s.Fail == nil {
		return nil
	}
	if err := s.Fail(op, coll); err != nil {
		return &store.Error{Op: op, Collection: coll, Kind: store.KindTransport, Err: err}
	}
	return nil
}

func (s *Store) Create(_ context.Context, coll string, entity any, out any) error {
	if err := s.fail("create", coll); err != nil {
		return err
	}
	doc, err := toDocument(entity)
	if err != nil {
		return &store.Error{Op: "create", Collection: coll, Kind: store.KindDecode, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, _ := doc["_id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := s.c.Get(key(coll, id)); exists {
		return &store.Error{Op: "create", Collection: coll, Kind: store.KindRejected, Status: 409,
			Err: fmt.Errorf("duplicate _id %q", id)}
	}
	doc["_id"] = id
	doc["last_modified_date"] = s.now().UnixMilli()
	s.c.Set(key(coll, id), doc, gocache.NoExpiration)
	return fromDocument(doc, out)
}

func (s *Store) Filter(_ context.Context, coll, field, value string, out any) (bool, error) {
	if err := s.fail("filter", coll); err != nil {
		return false, err
	}
	for _, doc := range s.scan(coll) {
		if v, ok := doc[field]; ok && fmt.Sprint(v) == value {
			return true, fromDocument(doc, out)
		}
	}
	return false, nil
}

func (s *Store) Read(_ context.Context, coll string, criteria, projection map[string]any, out any) (bool, error) {
	if err := s.fail("read", coll); err != nil {
		return false, err
	}
	for _, doc := range s.scan(coll) {
		if matches(doc, criteria) {
			return true, fromDocument(project(doc, projection), out)
		}
	}
	return false, nil
}

func (s *Store) Update(_ context.Context, coll string, criteria map[string]any, entity any, out any) error {
	if err := s.fail("update", coll); err != nil {
		return err
	}
	patch, err := toDocument(entity)
	if err != nil {
		return &store.Error{Op: "update", Collection: coll, Kind: store.KindDecode, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range s.scan(coll) {
		if !matches(doc, criteria) {
			continue
		}
		updated := document{}
		for k, v := range doc {
			updated[k] = v
		}
		for k, v := range patch {
			if k == "_id" {
				continue
			}
			updated[k] = v
		}
		updated["last_modified_date"] = s.now().UnixMilli()
		s.c.Set(key(coll, updated["_id"].(string)), updated, gocache.NoExpiration)
		return fromDocument(updated, out)
	}
	return &store.Error{Op: "update", Collection: coll, Kind: store.KindRejected, Status: 404,
		Err: fmt.Errorf("no entity matched criteria")}
}

func (s *Store) Delete(_ context.Context, coll string, criteria map[string]any) (store.DeleteResult, error) {
	if err := s.fail("delete", coll); err != nil {
		return store.DeleteResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var res store.DeleteResult
	for _, doc := range s.scan(coll) {
		if matches(doc, criteria) {
			s.c.Delete(key(coll, doc["_id"].(string)))
			res.Deleted++
		}
	}
	return res, nil
}

func (s *Store) Ping(context.Context) error { return s.fail("ping", "") }

// Len devuelve la cantidad de documentos de una colección.
func (s *Store) Len(coll string) int {
	return len(s.scan(coll))
}

// scan devuelve los documentos de coll en orden estable de _id.
func (s *Store) scan(coll string) []document {
	prefix := coll + "/"
	items := s.c.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]document, 0, len(keys))
	for _, k := range keys {
		if doc, ok := items[k].Object.(document); ok {
			out = append(out, doc)
		}
	}
	return out
}

func matches(doc document, criteria map[string]any) bool {
	for k, want := range criteria {
		got, ok := doc[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func project(doc document, projection map[string]any) document {
	if len(projection) == 0 {
		return doc
	}
	out := document{"_id": doc["_id"]}
	for k := range projection {
		if v, ok := doc[k]; ok {
			out[k] = v
		}
	}
	return out
}

// toDocument normaliza cualquier entidad a su forma JSON, igual que la vería el store remoto.
func toDocument(entity any) (document, error) {
	b, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("entity is not an object")
	}
	return doc, nil
}

func fromDocument(doc document, out any) error {
	if out == nil {
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
