// Package types holds the scalar domain values shared by every layer of the
// book: prices, quantities, identifiers, timestamps and the small enums
// (Side, TimeInForce, OrderType) that the matching engine pattern-matches on.
package types

import (
	"fmt"
	"math/bits"
)

// Price is an unsigned 128-bit integer denominated in the instrument's
// minimum tick units. It is represented as two 64-bit words rather than
// math/big.Int so that comparisons and arithmetic on the matching hot path
// never allocate.
type Price struct {
	Hi uint64
	Lo uint64
}

// NewPrice builds a Price from a plain uint64 tick count, the common case.
func NewPrice(ticks uint64) Price {
	return Price{Lo: ticks}
}

// Zero reports whether the price is exactly zero.
func (p Price) Zero() bool { return p.Hi == 0 && p.Lo == 0 }

// Cmp returns -1, 0, or 1 depending on whether p is less than, equal to, or
// greater than q.
func (p Price) Cmp(q Price) int {
	switch {
	case p.Hi != q.Hi:
		if p.Hi < q.Hi {
			return -1
		}
		return 1
	case p.Lo != q.Lo:
		if p.Lo < q.Lo {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func (p Price) LessThan(q Price) bool    { return p.Cmp(q) < 0 }
func (p Price) GreaterThan(q Price) bool { return p.Cmp(q) > 0 }
func (p Price) Equal(q Price) bool       { return p.Cmp(q) == 0 }

// Add returns p+q, wrapping on overflow of the 128-bit range (callers deal in
// tick prices far below the wrap point in practice).
func (p Price) Add(q Price) Price {
	lo, carry := bits.Add64(p.Lo, q.Lo, 0)
	hi, _ := bits.Add64(p.Hi, q.Hi, carry)
	return Price{Hi: hi, Lo: lo}
}

// Sub returns p-q. Callers must ensure p >= q; matching never subtracts a
// larger price from a smaller one.
func (p Price) Sub(q Price) Price {
	lo, borrow := bits.Sub64(p.Lo, q.Lo, 0)
	hi, _ := bits.Sub64(p.Hi, q.Hi, borrow)
	return Price{Hi: hi, Lo: lo}
}

// MulUint64 returns p*n truncated to 128 bits, used to scale a tick size by
// a tick count (OrderBook.PriceNTicksInside). p is rarely more than 64 bits
// wide in practice
// (Hi == 0); the high word's own overflow past 128 bits is dropped, same as
// the rest of this type's wrapping arithmetic.
func (p Price) MulUint64(n uint64) Price {
	hi, lo := bits.Mul64(p.Lo, n)
	hi += p.Hi * n
	return Price{Hi: hi, Lo: lo}
}

// Float64 narrows the price to a float64 tick count. This conversion is only
// ever used at the analytics boundary (VWAP, mid-price, imbalance) — never
// inside a matching decision, per the no-floating-point-in-matching rule.
func (p Price) Float64() float64 {
	if p.Hi == 0 {
		return float64(p.Lo)
	}
	return float64(p.Hi)*18446744073709551616.0 + float64(p.Lo)
}

func (p Price) String() string {
	if p.Hi == 0 {
		return fmt.Sprintf("%d", p.Lo)
	}
	return fmt.Sprintf("%d%020d", p.Hi, p.Lo)
}

// Quantity is an unsigned 64-bit order size in the instrument's lot units.
type Quantity uint64

// TimestampMs is a Unix-epoch millisecond timestamp.
type TimestampMs uint64

// SequenceNumber is a strictly monotonic ordinal assigned by the Sequencer,
// starting at 1.
type SequenceNumber uint64
