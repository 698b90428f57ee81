package store

import (
	"context"
	"time"
)

// Observer receives the outcome of every remote call.
type Observer interface {
	ObserveStoreCall(op, target string, duration time.Duration, err error)
}

// Instrumented decorates a Store with call timing.
type Instrumented struct {
	next     Store
	observer Observer
}

// NewInstrumented wraps next. A nil observer returns next unchanged.
func NewInstrumented(next Store, observer Observer) Store {
	if observer == nil {
		return next
	}
	return &Instrumented{next: next, observer: observer}
}

func (s *Instrumented) Select(ctx context.Context, table string, dest interface{}, filters ...Filter) error {
	start := time.Now()
	err := s.next.Select(ctx, table, dest, filters...)
	s.observer.ObserveStoreCall("select", table, time.Since(start), err)
	return err
}

func (s *Instrumented) Insert(ctx context.Context, table string, row Row, dest interface{}) error {
	start := time.Now()
	err := s.next.Insert(ctx, table, row, dest)
	s.observer.ObserveStoreCall("insert", table, time.Since(start), err)
	return err
}

func (s *Instrumented) Update(ctx context.Context, table string, row Row, id int64) error {
	start := time.Now()
	err := s.next.Update(ctx, table, row, id)
	s.observer.ObserveStoreCall("update", table, time.Since(start), err)
	return err
}

func (s *Instrumented) Delete(ctx context.Context, table string, id int64) error {
	start := time.Now()
	err := s.next.Delete(ctx, table, id)
	s.observer.ObserveStoreCall("delete", table, time.Since(start), err)
	return err
}

func (s *Instrumented) Call(ctx context.Context, procedure string, params map[string]interface{}, dest interface{}) error {
	start := time.Now()
	err := s.next.Call(ctx, procedure, params, dest)
	s.observer.ObserveStoreCall("rpc", procedure, time.Since(start), err)
	return err
}
