// Copyright (c) 2024 The Garner developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"errors"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"
)

// StorageEncoder implement it to customize encoding process for storage data.
type StorageEncoder interface {
	Encode() ([]byte, error)
}

// StorageDecoder implement it to customize decoding process for storage data.
type StorageDecoder interface {
	Decode([]byte) error
}

// encodeStorage encodes a storage value.
// Zero values encode to empty bytes, which mark the slot deleted.
func encodeStorage(val any) ([]byte, error) {
	if enc, ok := val.(StorageEncoder); ok {
		return enc.Encode()
	}
	if bi, ok := val.(*big.Int); ok {
		if bi.Sign() == 0 {
			return nil, nil
		}
		return rlp.EncodeToBytes(bi)
	}
	rv := reflect.ValueOf(val)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.IsZero() {
		return nil, nil
	}
	return rlp.EncodeToBytes(rv.Interface())
}

// decodeStorage decodes raw storage bytes into val.
// Empty bytes decode to the zero value.
func decodeStorage(raw []byte, val any) error {
	if dec, ok := val.(StorageDecoder); ok {
		return dec.Decode(raw)
	}
	if bi, ok := val.(*big.Int); ok {
		if len(raw) == 0 {
			bi.SetUint64(0)
			return nil
		}
		return rlp.DecodeBytes(raw, bi)
	}
	if len(raw) == 0 {
		rv := reflect.ValueOf(val)
		if rv.Kind() != reflect.Pointer || rv.IsNil() {
			return errors.New("storage value should be decoded into non-nil pointer")
		}
		rv.Elem().Set(reflect.Zero(rv.Elem().Type()))
		return nil
	}
	return rlp.DecodeBytes(raw, val)
}
