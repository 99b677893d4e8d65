package repository

import "context"

// SequenceRepository hands out strictly increasing numbers per counter name.
type SequenceRepository interface {
	Next(ctx context.Context, key string) (int64, error)
}
