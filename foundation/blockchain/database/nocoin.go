package database

import (
	"encoding/json"
	"fmt"
	"math"
)

// coinScale is the number of NoCoin subunits ("centicoins") per whole
// coin. NoCoin is kept as a fixed-point integer internally, while
// MarshalJSON/UnmarshalJSON still read and write a bare JSON number so
// two nodes exchanging amounts over the wire agree on the encoding.
const coinScale = 100

// NoCoin is a signed fixed-point amount of the node's native currency.
type NoCoin struct {
	centi int64
}

// MiningReward is the fixed amount credited to whoever mines a block.
var MiningReward = NewNoCoin(10)

// Zero is the additive identity.
var Zero = NoCoin{}

// NewNoCoin constructs a NoCoin from a whole-and-fractional float value.
func NewNoCoin(amount float64) NoCoin {
	return NoCoin{centi: int64(math.Round(amount * coinScale))}
}

// Add returns the sum of two NoCoin values.
func (n NoCoin) Add(other NoCoin) NoCoin {
	return NoCoin{centi: n.centi + other.centi}
}

// Sub returns the difference of two NoCoin values.
func (n NoCoin) Sub(other NoCoin) NoCoin {
	return NoCoin{centi: n.centi - other.centi}
}

// LessEqual reports whether n <= other.
func (n NoCoin) LessEqual(other NoCoin) bool {
	return n.centi <= other.centi
}

// Equal reports whether n == other.
func (n NoCoin) Equal(other NoCoin) bool {
	return n.centi == other.centi
}

// Float64 returns the value as a floating point number, for display and
// for computing the wire encoding.
func (n NoCoin) Float64() float64 {
	return float64(n.centi) / coinScale
}

// MarshalJSON encodes the amount as a bare JSON number.
func (n NoCoin) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Float64())
}

// UnmarshalJSON decodes a bare JSON number into a NoCoin, rounding to
// the nearest centicoin.
func (n *NoCoin) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decoding amount: %w", err)
	}

	n.centi = int64(math.Round(f * coinScale))
	return nil
}

// String implements fmt.Stringer.
func (n NoCoin) String() string {
	return fmt.Sprintf("%.2f", n.Float64())
}
