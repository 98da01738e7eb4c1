package store

import (
	"context"
	"time"
)

// Observer recibe una muestra por operación: op, colección, resultado (ok|miss|error) y duración.
type Observer func(op, coll, outcome string, d time.Duration)

type instrumented struct {
	next    Store
	observe Observer
}

// Instrument envuelve s reportando cada operación a observe. Si observe es nil devuelve s.
func Instrument(s Store, observe Observer) Store {
	if observe == nil {
		return s
	}
	return &instrumented{next: s, observe: observe}
}

func (i *instrumented) done(op, coll string, start time.Time, found bool, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case !found:
		outcome = "miss"
	}
	i.observe(op, coll, outcome, time.Since(start))
}

func (i *instrumented) Create(ctx context.Context, coll string, entity any, out any) error {
	start := time.Now()
	err := i.next.Create(ctx, coll, entity, out)
	i.done("create", coll, start, true, err)
	return err
}

func (i *instrumented) Filter(ctx context.Context, coll, field, value string, out any) (bool, error) {
	start := time.Now()
	found, err := i.next.Filter(ctx, coll, field, value, out)
	i.done("filter", coll, start, found, err)
	return found, err
}

func (i *instrumented) Read(ctx context.Context, coll string, criteria, projection map[string]any, out any) (bool, error) {
	start := time.Now()
	found, err := i.next.Read(ctx, coll, criteria, projection, out)
	i.done("read", coll, start, found, err)
	return found, err
}

func (i *instrumented) Update(ctx context.Context, coll string, criteria map[string]any, entity any, out any) error {
	start := time.Now()
	err := i.next.Update(ctx, coll, criteria, entity, out)
	i.done("update", coll, start, true, err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, coll string, criteria map[string]any) (DeleteResult, error) {
	start := time.Now()
	res, err := i.next.Delete(ctx, coll, criteria)
	i.done("delete", coll, start, res.Deleted > 0, err)
	return res, err
}

func (i *instrumented) Ping(ctx context.Context) error {
	return i.next.Ping(ctx)
}
