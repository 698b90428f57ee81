package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/store"
)

// spyStore counts calls per operation and can fail them on demand.
type spyStore struct {
	store.Store
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func newSpyStore(inner store.Store) *spyStore {
	return &spyStore{Store: inner, calls: map[string]int{}, fail: map[string]error{}}
}

func (s *spyStore) record(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.fail[op]
}

func (s *spyStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *spyStore) failWith(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = err
}

func (s *spyStore) Select(ctx context.Context, table string, dest interface{}, filters ...store.Filter) error {
	if err := s.record("select"); err != nil {
		return err
	}
	return s.Store.Select(ctx, table, dest, filters...)
}

func (s *spyStore) Insert(ctx context.Context, table string, row store.Row, dest interface{}) error {
	if err := s.record("insert"); err != nil {
		return err
	}
	return s.Store.Insert(ctx, table, row, dest)
}

func (s *spyStore) Update(ctx context.Context, table string, row store.Row, id int64) error {
	if err := s.record("update"); err != nil {
		return err
	}
	return s.Store.Update(ctx, table, row, id)
}

func (s *spyStore) Delete(ctx context.Context, table string, id int64) error {
	if err := s.record("delete"); err != nil {
		return err
	}
	return s.Store.Delete(ctx, table, id)
}

func (s *spyStore) Call(ctx context.Context, procedure string, params map[string]interface{}, dest interface{}) error {
	if err := s.record("rpc"); err != nil {
		return err
	}
	return s.Store.Call(ctx, procedure, params, dest)
}

// gatedStore holds each select until its gate is released, letting tests control completion order.
type gatedStore struct {
	store.Store
	gates chan chan struct{}
}

func (s *gatedStore) Select(ctx context.Context, table string, dest interface{}, filters ...store.Filter) error {
	gate := make(chan struct{})
	s.gates <- gate
	<-gate
	return s.Store.Select(ctx, table, dest, filters...)
}

func seedMemory(t *testing.T, courses []models.Course, students []models.Student, enrollments []models.Enrollment) *store.MemoryStore {
	t.Helper()
	mem := store.NewMemoryStore()
	ctx := context.Background()
	for _, c := range courses {
		require.NoError(t, mem.Insert(ctx, store.TableCourses, c.Row(), nil))
	}
	for _, s := range students {
		require.NoError(t, mem.Insert(ctx, store.TableStudents, s.Row(), nil))
	}
	for _, e := range enrollments {
		require.NoError(t, mem.Insert(ctx, store.TableEnrollments, e.Row(), nil))
	}
	return mem
}

// fakeCache is an in-process participantsCache.
type fakeCache struct {
	mu          sync.Mutex
	entries     map[string][]models.Student
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]models.Student{}}
}

func (c *fakeCache) Enabled() bool { return true }

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	students, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	*dest.(*[]models.Student) = append([]models.Student(nil), students...)
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]models.Student(nil), value.([]models.Student)...)
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, pattern)
	for key := range c.entries {
		if key == pattern || pattern == participantsKeyPrefix+"*" {
			delete(c.entries, key)
		}
	}
	return nil
}
