package types

// Side identifies which side of the book an order rests on or a market
// order sweeps.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side, used throughout matching to find the
// book an incoming order crosses against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// TimeInForce controls how long an order may rest and what happens to any
// unfilled remainder on arrival.
type TimeInForce int

const (
	// GTC rests indefinitely until filled or cancelled.
	GTC TimeInForce = iota
	// IOC matches what it can immediately; any remainder is cancelled.
	IOC
	// FOK must fill in full immediately or the whole order is cancelled
	// with no partial effect.
	FOK
	// GTD rests until ExpiryMs, after which it is lazily expired on the
	// next match walk that touches it.
	GTD
)

func (t TimeInForce) String() string {
	switch t {
	case GTC:
		return "gtc"
	case IOC:
		return "ioc"
	case FOK:
		return "fok"
	case GTD:
		return "gtd"
	default:
		return "unknown"
	}
}

// OrderType tags which variant of the polymorphic Order a given instance is.
// Matching sites switch on this tag rather than using virtual dispatch.
type OrderType int

const (
	LimitOrder OrderType = iota
	IcebergOrder
	PostOnlyOrder
	MarketOrder
	PeggedOrderType
	TrailingStopOrder
)

func (t OrderType) String() string {
	switch t {
	case LimitOrder:
		return "limit"
	case IcebergOrder:
		return "iceberg"
	case PostOnlyOrder:
		return "post_only"
	case MarketOrder:
		return "market"
	case PeggedOrderType:
		return "pegged"
	case TrailingStopOrder:
		return "trailing_stop"
	default:
		return "unknown"
	}
}

// PegReference names the reference price a pegged order tracks.
type PegReference int

const (
	PegBestBid PegReference = iota
	PegBestAsk
	PegMidPrice
	PegLastTrade
)

func (r PegReference) String() string {
	switch r {
	case PegBestBid:
		return "best_bid"
	case PegBestAsk:
		return "best_ask"
	case PegMidPrice:
		return "mid_price"
	case PegLastTrade:
		return "last_trade"
	default:
		return "unknown"
	}
}
