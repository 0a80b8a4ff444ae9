package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchorDiscriminator(t *testing.T) {
	tests := []struct {
		name string
		want Discriminator
	}{
		{"Fleet", Discriminator{109, 207, 251, 48, 106, 2, 136, 163}},
		{"ContractState", Discriminator{190, 138, 10, 223, 189, 116, 222, 115}},
		{"RentalState", Discriminator{97, 162, 29, 222, 251, 251, 180, 244}},
		{"FleetShips", Discriminator{252, 81, 147, 246, 222, 141, 185, 110}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnchorDiscriminator(tt.name))
		})
	}
}

func TestDiscriminatorOf(t *testing.T) {
	_, ok := DiscriminatorOf([]byte{1, 2, 3})
	assert.False(t, ok)
	_, ok = DiscriminatorOf(nil)
	assert.False(t, ok)

	d, ok := DiscriminatorOf([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9})
	assert.True(t, ok)
	assert.Equal(t, Discriminator{1, 2, 3, 4, 5, 6, 7, 8}, d)

	parsed, err := ParseDiscriminator(d.String())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
}

func TestPubkey(t *testing.T) {
	const s = "SRSLY1fq9TJqCk1gNSE7VZL2bztvTn9wm4VR8u8jMKT"
	p, err := ParsePubkey(s)
	require.NoError(t, err)
	assert.Equal(t, s, p.String())
	assert.False(t, p.IsZero())

	var zero Pubkey
	assert.True(t, zero.IsZero())
	assert.Equal(t, "11111111111111111111111111111111", zero.String())

	_, err = ParsePubkey("abc")
	assert.Error(t, err)
	_, err = ParsePubkey("0OIl")
	assert.Error(t, err)

	var q Pubkey
	require.NoError(t, q.UnmarshalText([]byte(s)))
	assert.Equal(t, p, q)
}
