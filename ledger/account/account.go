// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package account

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/garnerfi/garner/garner"
	"github.com/garnerfi/garner/state"
)

var totalStakedKey = garner.Blake2b([]byte("total-staked"))

func entryKey(addr garner.Address) garner.Bytes32 {
	return garner.Blake2b([]byte("account"), addr.Bytes())
}

// Account is the staking book entry of one participant.
// Entries are created lazily on first interaction and their slots are
// deleted once both balances decay to zero.
type Account struct {
	StakedBalance  *big.Int
	AccruedRewards *big.Int
	LastUpdateTime uint64
}

var (
	_ state.StorageEncoder = (*Account)(nil)
	_ state.StorageDecoder = (*Account)(nil)
)

func (a *Account) Encode() ([]byte, error) {
	if a.StakedBalance.Sign() == 0 && a.AccruedRewards.Sign() == 0 {
		return nil, nil
	}
	return rlp.EncodeToBytes(a)
}

func (a *Account) Decode(data []byte) error {
	if len(data) == 0 {
		*a = Account{&big.Int{}, &big.Int{}, 0}
		return nil
	}
	return rlp.DecodeBytes(data, a)
}

// Book reads and writes the staking entries of all participants,
// along with the global staked total.
type Book struct {
	state *state.State
}

func New(state *state.State) *Book {
	return &Book{state}
}

// Get returns the entry of the given address.
// Untouched addresses resolve to the empty entry.
func (b *Book) Get(addr garner.Address) (*Account, error) {
	var acc Account
	if err := b.state.GetStructuredStorage(entryKey(addr), &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// Set stores the entry of the given address.
// Entries with both balances at zero are stored as deleted slots.
func (b *Book) Set(addr garner.Address, acc *Account) error {
	return b.state.SetStructuredStorage(entryKey(addr), acc)
}

// TotalStaked returns the sum of all staked balances.
func (b *Book) TotalStaked() (*big.Int, error) {
	var total big.Int
	if err := b.state.GetStructuredStorage(totalStakedKey, &total); err != nil {
		return nil, err
	}
	return &total, nil
}

// SetTotalStaked stores the sum of all staked balances.
func (b *Book) SetTotalStaked(total *big.Int) error {
	return b.state.SetStructuredStorage(totalStakedKey, total)
}
