package rentals

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/layout"
)

func TestContractState_roundtrip(t *testing.T) {
	tests := []*ContractState{
		{},
		{
			Version:            1,
			ToClose:            true,
			Rate:               math.MaxUint64,
			DurationMin:        1,
			DurationMax:        30,
			PaymentFreq:        1,
			Fleet:              account.Pubkey{1},
			GameID:             account.Pubkey{2},
			CurrentRentalState: account.Pubkey{3},
			Owner:              account.Pubkey{4},
			OwnerTokenAccount:  account.Pubkey{5},
			OwnerProfile:       account.Pubkey{6},
			Bump:               255,
		},
	}
	for _, cs := range tests {
		got, err := DecodeContractState(cs.Marshal())
		require.NoError(t, err)
		assert.Equal(t, cs, got)
	}
}

func TestContractState_invalidBool(t *testing.T) {
	data := (&ContractState{}).Marshal()
	data[1] = 7
	_, err := DecodeContractState(data)
	var ib layout.InvalidBoolError
	assert.True(t, errors.As(err, &ib))
}

func TestContractState_fields(t *testing.T) {
	cs := &ContractState{Rate: math.MaxUint64}
	v, _ := cs.Fields().Get("rate")
	assert.Equal(t, "18446744073709551615", v)

	cs.Rate = 10
	v, _ = cs.Fields().Get("rate")
	assert.Equal(t, int64(10), v)
}

func TestRentalState_roundtrip(t *testing.T) {
	rs := &RentalState{
		Version:   1,
		Contract:  account.Pubkey{1},
		Borrower:  account.Pubkey{2},
		Fleet:     account.Pubkey{3},
		Rate:      100,
		StartTime: -5,
		EndTime:   math.MaxInt64,
		Bump:      1,
	}
	data := rs.AccountData()
	d, _ := account.DiscriminatorOf(data)
	assert.Equal(t, RentalStateDiscriminator, d)

	got, err := DecodeRentalState(data[account.DiscriminatorSize:])
	require.NoError(t, err)
	assert.Equal(t, rs, got)

	_, err = DecodeRentalState(data[account.DiscriminatorSize : len(data)-1])
	assert.True(t, errors.Is(err, layout.ErrTruncatedInput))
}
