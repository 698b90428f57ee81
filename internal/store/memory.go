package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/campus-admin-api/internal/models"
)

// Procedure computes the rows returned by a remote procedure against the in-memory tables.
type Procedure func(tables map[string][]Row, params map[string]interface{}) ([]Row, error)

// MemoryStore keeps the remote tables in process. It backs local development and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	tables     map[string][]Row
	nextID     map[string]int64
	procedures map[string]Procedure
}

// NewMemoryStore returns an empty store with the enrollments-by-course procedure registered.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		tables:     make(map[string][]Row, len(columns)),
		nextID:     make(map[string]int64, len(columns)),
		procedures: make(map[string]Procedure),
	}
	for table := range columns {
		s.tables[table] = nil
		s.nextID[table] = 1
	}
	s.RegisterProcedure(ProcEnrollmentsByCourse, enrollmentsByCourse)
	return s
}

// RegisterProcedure adds or replaces a callable procedure.
func (s *MemoryStore) RegisterProcedure(name string, proc Procedure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procedures[name] = proc
}

// Select copies matching rows into dest in insertion order.
func (s *MemoryStore) Select(ctx context.Context, table string, dest interface{}, filters ...Filter) error {
	if err := checkTable(table); err != nil {
		return newError("select", table, err)
	}
	s.mu.RLock()
	matched := make([]Row, 0, len(s.tables[table]))
	for _, row := range s.tables[table] {
		if matches(row, filters) {
			matched = append(matched, row)
		}
	}
	s.mu.RUnlock()
	return decodeRows("select", table, matched, dest)
}

// Insert stores a copy of row, assigning an id when none is given.
func (s *MemoryStore) Insert(ctx context.Context, table string, row Row, dest interface{}) error {
	if err := checkTable(table); err != nil {
		return newError("insert", table, err)
	}
	stored, err := normalise(row)
	if err != nil {
		return newError("insert", table, err)
	}

	s.mu.Lock()
	if err := s.insertLocked(table, stored); err != nil {
		s.mu.Unlock()
		return &Error{Op: "insert", Table: table, Message: err.Error(), Err: err}
	}
	s.mu.Unlock()

	if dest == nil {
		return nil
	}
	return decodeRows("insert", table, []Row{stored}, dest)
}

// Update merges row into the stored row with the id.
func (s *MemoryStore) Update(ctx context.Context, table string, row Row, id int64) error {
	if err := checkTable(table); err != nil {
		return newError("update", table, err)
	}
	values, err := normalise(row)
	if err != nil {
		return newError("update", table, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(table, id)
	if idx < 0 {
		return notFound("update", table, id)
	}
	updated := make(Row, len(s.tables[table][idx]))
	for k, v := range s.tables[table][idx] {
		updated[k] = v
	}
	for k, v := range values {
		if k != "id" {
			updated[k] = v
		}
	}
	s.tables[table][idx] = updated
	return nil
}

// Delete removes the row with the id.
func (s *MemoryStore) Delete(ctx context.Context, table string, id int64) error {
	if err := checkTable(table); err != nil {
		return newError("delete", table, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(table, id)
	if idx < 0 {
		return notFound("delete", table, id)
	}
	if column := referencingColumn(table); column != "" && s.referencedLocked(column, id) {
		return newError("delete", table, fmt.Errorf("update or delete on table \"%s\" violates foreign key constraint \"%s_%s_fkey\" on table \"%s\"", table, TableEnrollments, column, TableEnrollments))
	}
	rows := s.tables[table]
	s.tables[table] = append(rows[:idx:idx], rows[idx+1:]...)
	return nil
}

// Call runs a registered procedure.
func (s *MemoryStore) Call(ctx context.Context, procedure string, params map[string]interface{}, dest interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proc, ok := s.procedures[procedure]
	if !ok {
		return newError("rpc", procedure, fmt.Errorf("could not find the function %s", procedure))
	}
	rows, err := proc(s.tables, params)
	if err != nil {
		return newError("rpc", procedure, err)
	}
	return decodeRows("rpc", procedure, rows, dest)
}

// Seed is the YAML fixture format accepted by LoadSeed.
type Seed struct {
	Courses     []models.Course     `yaml:"courses"`
	Students    []models.Student    `yaml:"students"`
	Enrollments []models.Enrollment `yaml:"enrollments"`
}

// LoadSeedFile reads a YAML fixture from disk into the store.
func (s *MemoryStore) LoadSeedFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	return s.LoadSeed(raw)
}

// LoadSeed inserts courses, students and enrollments from a YAML document, in that order.
func (s *MemoryStore) LoadSeed(raw []byte) error {
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	batches := []struct {
		table string
		items interface{}
	}{
		{TableCourses, seed.Courses},
		{TableStudents, seed.Students},
		{TableEnrollments, seed.Enrollments},
	}
	for _, batch := range batches {
		rows, err := toRows(batch.items)
		if err != nil {
			return fmt.Errorf("seed %s: %w", batch.table, err)
		}
		for _, row := range rows {
			if id, ok := rowID(row); ok && id == 0 {
				delete(row, "id")
			}
			if err := s.Insert(context.Background(), batch.table, row, nil); err != nil {
				return fmt.Errorf("seed %s: %w", batch.table, err)
			}
		}
	}
	return nil
}

func (s *MemoryStore) insertLocked(table string, row Row) error {
	id, ok := rowID(row)
	if !ok {
		id = s.nextID[table]
		row["id"] = json.Number(fmt.Sprint(id))
	} else if s.indexLocked(table, id) >= 0 {
		return fmt.Errorf("duplicate key value violates unique constraint \"%s_pkey\"", table)
	}
	if table == TableEnrollments {
		for _, ref := range []struct{ column, table string }{{"student_id", TableStudents}, {"course_id", TableCourses}} {
			refID, _ := toInt64(row[ref.column])
			if s.indexLocked(ref.table, refID) < 0 {
				return fmt.Errorf("insert or update on table \"%s\" violates foreign key constraint \"%s_%s_fkey\"", table, table, ref.column)
			}
		}
	}
	if id >= s.nextID[table] {
		s.nextID[table] = id + 1
	}
	s.tables[table] = append(s.tables[table], row)
	return nil
}

func (s *MemoryStore) indexLocked(table string, id int64) int {
	for i, row := range s.tables[table] {
		if rowIDValue, ok := rowID(row); ok && rowIDValue == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) referencedLocked(column string, id int64) bool {
	for _, row := range s.tables[TableEnrollments] {
		if refID, ok := toInt64(row[column]); ok && refID == id {
			return true
		}
	}
	return false
}

// referencingColumn names the enrollments column pointing at table, if any.
func referencingColumn(table string) string {
	switch table {
	case TableStudents:
		return "student_id"
	case TableCourses:
		return "course_id"
	}
	return ""
}

func enrollmentsByCourse(tables map[string][]Row, params map[string]interface{}) ([]Row, error) {
	courseID, ok := toInt64(params["p_course_id"])
	if !ok {
		return nil, fmt.Errorf("missing parameter p_course_id")
	}
	students := make(map[int64]Row, len(tables[TableStudents]))
	for _, row := range tables[TableStudents] {
		if id, ok := rowID(row); ok {
			students[id] = row
		}
	}
	var out []Row
	for _, enrollment := range tables[TableEnrollments] {
		if cid, _ := toInt64(enrollment["course_id"]); cid != courseID {
			continue
		}
		sid, _ := toInt64(enrollment["student_id"])
		if student, ok := students[sid]; ok {
			out = append(out, student)
		}
	}
	return out, nil
}

func matches(row Row, filters []Filter) bool {
	for _, f := range filters {
		if fmt.Sprint(row[f.Column]) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

// normalise deep-copies a row through JSON so stored values never alias caller data.
func normalise(row Row) (Row, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	var out Row
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func toRows(items interface{}) ([]Row, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	var rows []Row
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func decodeRows(op, table string, rows []Row, dest interface{}) error {
	if rows == nil {
		rows = []Row{}
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return newError(op, table, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return newError(op, table, fmt.Errorf("decode rows: %w", err))
	}
	return nil
}

func rowID(row Row) (int64, bool) {
	v, ok := row["id"]
	if !ok || v == nil {
		return 0, false
	}
	return toInt64(v)
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		id, err := n.Int64()
		return id, err == nil
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
