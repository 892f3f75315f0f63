package clog

import (
	"context"
	"maps"
	"sync"
)

const (
	ErrorAttributeKey = "error.message"
	StackAttributeKey = "error.stack"
)

// attrSet is the request scoped bag of log attributes. Handlers deep in the
// call chain add to it and the access log line picks everything up.
type attrSet struct {
	mu    sync.RWMutex
	attrs map[string]any
}

type attrSetKey struct{}

func ContextWithSlog(ctx context.Context) context.Context {
	return context.WithValue(ctx, attrSetKey{}, &attrSet{attrs: map[string]any{}})
}

func fromContext(ctx context.Context) *attrSet {
	s, _ := ctx.Value(attrSetKey{}).(*attrSet)
	return s
}

func AddAttribute(ctx context.Context, key string, value any) {
	if s := fromContext(ctx); s != nil {
		s.mu.Lock()
		s.attrs[key] = value
		s.mu.Unlock()
	}
}

// AddAttributes merges attrs into the set. Nested maps are merged key by key
// so two calls can each contribute to the same group.
func AddAttributes(ctx context.Context, attrs map[string]any) {
	s := fromContext(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	merge(s.attrs, attrs)
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		sub, isMap := v.(map[string]any)
		if !isMap {
			dst[k] = v
			continue
		}
		existing, ok := dst[k].(map[string]any)
		if !ok {
			existing = map[string]any{}
			dst[k] = existing
		}
		merge(existing, sub)
	}
}

func GetAttribute[T any](ctx context.Context, key string) T {
	var zero T
	s := fromContext(ctx)
	if s == nil {
		return zero
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.attrs[key].(T); ok {
		return v
	}
	return zero
}

// GetAttributes returns a shallow copy of the set, nil outside a request.
func GetAttributes(ctx context.Context) map[string]any {
	s := fromContext(ctx)
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.attrs)
}

func AddError(ctx context.Context, err error) { AddAttribute(ctx, ErrorAttributeKey, err) }

func GetError(ctx context.Context) error { return GetAttribute[error](ctx, ErrorAttributeKey) }

func AddStack(ctx context.Context, stack string) { AddAttribute(ctx, StackAttributeKey, stack) }

func GetStack(ctx context.Context) string { return GetAttribute[string](ctx, StackAttributeKey) }

// AddActor records who made the request.
func AddActor(ctx context.Context, id, role string) {
	AddAttributes(ctx, map[string]any{"actor_id": id, "actor_role": role})
}
