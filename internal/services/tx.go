package services

import "context"

// Transactor runs fn inside a storage transaction carried by the context passed to fn
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
