package payment

import (
	"context"

	"github.com/google/uuid"
)

// TransactionManager defines the interface for transaction management.
// This is an application-layer port, not a domain concern.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Confirmer sends an authorization outcome to the original caller and reports
// whether the caller acknowledged it. Implementations fail closed: transport
// errors, timeouts and malformed responses all surface as false, never as an
// error, and are never retried.
type Confirmer interface {
	Notify(ctx context.Context, externalID uuid.UUID, approved bool, reason string, host string) bool
}

// ShopperLocker provides mutual exclusion scoped per shopper. The returned
// function releases the lock. Payments for unrelated shoppers finalize in
// parallel; only same-shopper finalizations serialize.
type ShopperLocker interface {
	Lock(ctx context.Context, shopperID int64) (func(), error)
}
