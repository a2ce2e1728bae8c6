package snapshot

import (
	"math/big"

	"github.com/shopspring/decimal"

	"glacier/internal/types"
)

// decimalTicks is a types.Price that marshals to JSON as a decimal string
// rather than two raw uint64 words, so the snapshot format stays a single
// human-readable integer regardless of how many bits of the 128-bit range
// are in use. shopspring/decimal carries the value as a big.Int internally,
// which is exactly what a 128-bit tick count needs to round-trip exactly.
type decimalTicks types.Price

var twoPow64 = new(big.Int).Lsh(big.NewInt(1), 64)

func (d decimalTicks) toBigInt() *big.Int {
	hi := new(big.Int).SetUint64(types.Price(d).Hi)
	hi.Mul(hi, twoPow64)
	lo := new(big.Int).SetUint64(types.Price(d).Lo)
	return hi.Add(hi, lo)
}

func decimalTicksFromBigInt(v *big.Int) decimalTicks {
	lo := new(big.Int).And(v, new(big.Int).Sub(twoPow64, big.NewInt(1)))
	hi := new(big.Int).Rsh(v, 64)
	return decimalTicks(types.Price{Hi: hi.Uint64(), Lo: lo.Uint64()})
}

func (d decimalTicks) MarshalJSON() ([]byte, error) {
	dec := decimal.NewFromBigInt(d.toBigInt(), 0)
	return []byte(`"` + dec.String() + `"`), nil
}

func (d *decimalTicks) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dec, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	*d = decimalTicksFromBigInt(dec.BigInt())
	return nil
}
