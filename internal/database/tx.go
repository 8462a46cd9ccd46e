package database

import "context"

// Transactor runs fn inside a transaction carried by the context passed to fn.
// Repository calls made with that context join the transaction. A nested call
// reuses the outer transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
