package sequencer

import (
	"encoding/json"

	"glacier/internal/bookerrors"
	"glacier/internal/types"
)

// Kind identifies which operation a Command carries.
type Kind int

const (
	AddOrder Kind = iota
	CancelOrder
	ModifyOrder
	RepriceAll
	Snapshot
)

func (k Kind) String() string {
	switch k {
	case AddOrder:
		return "AddOrder"
	case CancelOrder:
		return "CancelOrder"
	case ModifyOrder:
		return "ModifyOrder"
	case RepriceAll:
		return "RepriceAll"
	case Snapshot:
		return "Snapshot"
	default:
		return "Unknown"
	}
}

// Command is the single tagged-variant message the Sequencer accepts,
// mirroring the style of types.Order: one struct, a Kind tag, and fields
// that are only meaningful for the kinds that use them.
type Command struct {
	Kind Kind

	Order *types.Order `json:"order,omitempty"`

	CancelID *types.OrderId `json:"cancel_id,omitempty"`

	ModifyID *types.OrderId  `json:"modify_id,omitempty"`
	NewPrice *types.Price    `json:"new_price,omitempty"`
	NewQty   *types.Quantity `json:"new_qty,omitempty"`
}

func encodeCommand(c Command) ([]byte, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, &bookerrors.SerializationError{Message: err.Error()}
	}
	return b, nil
}

func decodeCommand(b []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(b, &c); err != nil {
		return Command{}, &bookerrors.DeserializationError{Message: err.Error()}
	}
	return c, nil
}
