package types

import (
	"crypto/sha256"

	"github.com/google/uuid"
)

// OrderId is a 128-bit order identifier. Callers may supply their own
// uuid.UUID, or widen a caller-assigned uint64 into one with NewOrderIdFromU64.
type OrderId = uuid.UUID

// NewOrderId mints a random v4 order id. Matching never calls this itself —
// ids are always supplied by the caller so that replay stays deterministic.
func NewOrderId() OrderId { return uuid.New() }

// NewOrderIdFromU64 widens a caller-supplied uint64 order id into the
// 128-bit OrderId space deterministically, so the same u64 always maps to
// the same OrderId.
func NewOrderIdFromU64(id uint64) OrderId {
	var b [16]byte
	for i := 0; i < 8; i++ {
		b[15-i] = byte(id >> (8 * i))
	}
	u, _ := uuid.FromBytes(b[:])
	return u
}

// UserId is a 32-byte opaque identifier for the account owning an order.
type UserId [32]byte

// NewUserId hashes an arbitrary caller-supplied account identifier (e.g. an
// account number or API key id) into the fixed-width opaque form used
// internally, so the book never has to reason about variable-length user
// strings.
func NewUserId(account string) UserId {
	return UserId(sha256.Sum256([]byte(account)))
}

var ZeroUserId UserId
