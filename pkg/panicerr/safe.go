package panicerr

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/panics"
)

// Call runs fn and returns a recovered panic as an error carrying the stack.
func Call(fn func() error) error {
	var err error
	rec := panics.Try(func() { err = fn() })
	if rec != nil {
		return rec.AsError()
	}
	return err
}

// Component wraps a long running goroutine for a conc pool. A panic or an
// error ends the component and is reported under its name.
func Component(name string, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := Call(func() error { return fn(ctx) }); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}
