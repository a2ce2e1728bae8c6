package types

// Order is the single tagged-variant representation of every order kind the
// book accepts. Shared fields live at the top; variant-specific fields are
// grouped below and only meaningful for the OrderType that owns them.
// Matching code switches on Type rather than using a virtual-dispatch
// hierarchy.
type Order struct {
	ID        OrderId
	Type      OrderType
	Side      Side
	UserId    UserId
	Timestamp TimestampMs
	TIF       TimeInForce
	ExpiryMs  TimestampMs // meaningful when TIF == GTD

	// Sequence is the arrival ordinal within its price level, assigned by
	// PriceLevel.Add. It is what enforces time priority; two orders at the
	// same price are never compared by Timestamp alone since two orders can
	// share a millisecond.
	Sequence SequenceNumber

	// Limit / Iceberg / PostOnly / Market / PeggedOrder fields.
	Price              Price    // limit price (Limit, Iceberg, PostOnly); fallback price (Pegged)
	RemainingQuantity  Quantity // Limit, PostOnly, Market
	VisibleQuantity    Quantity // Iceberg: currently displayed slice
	HiddenQuantity     Quantity // Iceberg: reserve not yet shown
	OriginalVisibleQty Quantity // Iceberg: refresh slice size when Config.IcebergRefreshSize == 0

	// PeggedOrder fields.
	PegRef    PegReference
	PegOffset int64 // signed, in ticks; may push price above or below the reference

	// TrailingStop fields.
	TrailAmount        Price
	LastReferencePrice Price
	Triggered          bool
}

// Remaining reports the order's live quantity regardless of variant: the
// iceberg's visible+hidden, or the plain RemainingQuantity for everything
// else.
func (o *Order) Remaining() Quantity {
	if o.Type == IcebergOrder {
		return o.VisibleQuantity + o.HiddenQuantity
	}
	return o.RemainingQuantity
}

// VisibleRemaining is the quantity a level's aggregate visible total should
// count for this order: the iceberg's visible slice only, else its full
// remaining quantity.
func (o *Order) VisibleRemaining() Quantity {
	if o.Type == IcebergOrder {
		return o.VisibleQuantity
	}
	return o.RemainingQuantity
}

// Exhausted reports whether the order has nothing left to fill.
func (o *Order) Exhausted() bool {
	return o.Remaining() == 0
}

// Expired reports whether a GTD order's deadline has passed as of now.
func (o *Order) Expired(nowMs TimestampMs) bool {
	return o.TIF == GTD && o.ExpiryMs != 0 && o.ExpiryMs < nowMs
}

// Clone returns a value copy of the order, used whenever a pointer to a
// resting order must be handed to a caller without granting them a mutable
// alias into the book's own state.
func (o *Order) Clone() Order {
	return *o
}
