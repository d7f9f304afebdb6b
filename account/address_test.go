package account

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reference vectors from EIP-55.
var checksummed = []string{
	"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
	"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
}

func TestHexChecksum(t *testing.T) {
	for _, want := range checksummed {
		t.Run(want, func(t *testing.T) {
			a, err := Parse(want)
			require.NoError(t, err)
			assert.Equal(t, want, a.Hex())
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"lowercase", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", nil},
		{"uppercase bare", "5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", nil},
		{"bad checksum", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD", ErrChecksumMismatch},
		{"too short", "0x1234", ErrInvalidAddress},
		{"not hex", "0xzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestZero(t *testing.T) {
	assert.True(t, Zero.IsZero())
	assert.False(t, MustParse(checksummed[0]).IsZero())
}

func TestDerive(t *testing.T) {
	a := Derive("pool", "abc")
	b := Derive("pool", "abc")
	c := Derive("pool", "abd")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.False(t, a.IsZero())
}

func TestJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		Owner Address `json:"owner"`
	}
	in := wrapper{Owner: MustParse(checksummed[1])}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), checksummed[1])

	var out wrapper
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.Owner, out.Owner)
}
