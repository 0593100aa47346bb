// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/garnerfi/garner/garner"
)

// CustomGenesis is a user customized genesis.
type CustomGenesis struct {
	LaunchTime uint64           `json:"launchTime"`
	Owner      garner.Address   `json:"owner"`
	RateBps    uint64           `json:"rateBps"`
	Pool       *HexOrDecimal256 `json:"pool"`
	Accounts   []Account        `json:"accounts"`
}

// Account is an account set up at genesis.
type Account struct {
	Address garner.Address   `json:"address"`
	Balance *HexOrDecimal256 `json:"balance"`
	Staked  *HexOrDecimal256 `json:"staked"`
}

// ParseCustomGenesis decodes a custom genesis document, rejecting
// unknown fields.
func ParseCustomGenesis(r io.Reader) (*CustomGenesis, error) {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	var gen CustomGenesis
	if err := decoder.Decode(&gen); err != nil {
		return nil, fmt.Errorf("unable to decode genesis: %w", err)
	}
	return &gen, nil
}

// HexOrDecimal256 marshals big.Int as hex or decimal.
// Copied from go-ethereum/common/math and implement json. Marshaler
type HexOrDecimal256 math.HexOrDecimal256

// UnmarshalJSON implements the json.Unmarshaler interface.
func (i *HexOrDecimal256) UnmarshalJSON(input []byte) error {
	var hex string
	if err := json.Unmarshal(input, &hex); err != nil {
		if err = (*big.Int)(i).UnmarshalJSON(input); err != nil {
			return err
		}
		return nil
	}
	bigint, ok := math.ParseBig256(hex)
	if !ok {
		return fmt.Errorf("invalid hex or decimal integer %q", input)
	}
	*i = HexOrDecimal256(*bigint)
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (i HexOrDecimal256) MarshalJSON() ([]byte, error) {
	decimal256 := math.HexOrDecimal256(i)
	text, err := decimal256.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}
