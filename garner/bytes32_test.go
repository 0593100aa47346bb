// Copyright (c) 2024 The Garner developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package garner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytes32JSONRoundTrip(t *testing.T) {
	hex := `"0x00000000000000000000000000000000000000000000000000006d6173746572"`

	var b Bytes32
	require.NoError(t, json.Unmarshal([]byte(hex), &b))

	out, err := json.Marshal(&b)
	require.NoError(t, err)
	assert.Equal(t, hex, string(out))
}

func TestParseBytes32(t *testing.T) {
	_, err := ParseBytes32("0x00")
	assert.Error(t, err)

	b, err := ParseBytes32("0x0000000000000000000000000000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.False(t, b.IsZero())
	assert.Equal(t, byte(1), b[31])
}

func TestBytes32AbbrevString(t *testing.T) {
	b := MustParseBytes32("0x0102030400000000000000000000000000000000000000000000000005060708")
	assert.Equal(t, "0x01020304…05060708", b.AbbrevString())
}
