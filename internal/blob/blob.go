// Package blob is the key/value document store the campaign publishes to.
package blob

import (
	"context"
	"errors"
)

// ErrExists is returned by Put when the key is taken and Overwrite is false.
var ErrExists = errors.New("blob already exists")

const (
	ContentTypeJSON = "application/json"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type PutOptions struct {
	Overwrite   bool
	ContentType string
}

// Store reads and writes whole blobs by key. Get reports a missing key with
// ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error
}
