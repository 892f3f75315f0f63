package cerr

import (
	"context"
	"errors"
	"fmt"

	"github.com/kazz187/taskmarket/pkg/storage"
)

// StorageOp names the blob operation that failed.
type StorageOp string

const (
	OpRead   StorageOp = "read"
	OpWrite  StorageOp = "write"
	OpDelete StorageOp = "delete"
)

// WrapStorage converts a blob storage failure on target into a coded error.
// A missing blob is NotFound except on writes, where it cannot happen.
func WrapStorage(op StorageOp, target string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return NewError(Canceled, "request canceled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(DeadlineExceeded, "storage timed out", err)
	case errors.Is(err, storage.ErrCorrupt):
		return NewError(DataLoss, "server error", fmt.Errorf("%s %s: %w", op, target, err))
	case op != OpWrite && errors.Is(err, storage.ErrNotFound):
		return NewError(NotFound, target+" not found", err)
	}
	return NewError(Internal, "server error", fmt.Errorf("%s %s: %w", op, target, err))
}
