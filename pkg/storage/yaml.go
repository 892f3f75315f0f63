package storage

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrCorrupt is returned for a blob that exists but does not decode.
var ErrCorrupt = errors.New("corrupt record")

// GetYAML reads the blob at path and decodes it into a new T.
func GetYAML[T any](ctx context.Context, s Storage, path string) (*T, error) {
	data, err := s.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	v := new(T)
	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, ErrCorrupt, err)
	}
	return v, nil
}

func PutYAML(ctx context.Context, s Storage, path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return s.Write(ctx, path, data)
}

// ScanYAML decodes every blob directly under prefix in path order. Blobs
// removed after listing or failing to decode are skipped.
func ScanYAML[T any](ctx context.Context, s Storage, prefix string) ([]*T, error) {
	paths, err := s.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(paths))
	for _, p := range paths {
		v, err := GetYAML[T](ctx, s, p)
		switch {
		case err == nil:
			out = append(out, v)
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrCorrupt):
		default:
			return nil, err
		}
	}
	return out, nil
}
