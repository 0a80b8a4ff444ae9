package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/programs/rentals"
	"github.com/sagestream/sagestream/programs/sage"
	"github.com/sagestream/sagestream/projection"
)

func TestDefault(t *testing.T) {
	r := Default()
	assert.Same(t, r, Default())
	assert.Len(t, r.Entries(), 6)

	e, ok := r.Lookup(sage.FleetDiscriminator)
	require.True(t, ok)
	assert.Equal(t, "Fleet", e.Name)
	assert.Equal(t, sage.RelationFleets, e.Relation)

	_, ok = r.Lookup(account.Discriminator{1, 2, 3, 4, 5, 6, 7, 8})
	assert.False(t, ok)

	assert.Len(t, r.ForProgram(sage.ProgramID), 4)
	assert.Len(t, r.ForProgram(rentals.ProgramID), 2)
	assert.Empty(t, r.ForProgram(account.Pubkey{1}))

	var names []string
	for _, e := range r.Entries() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"ContractState", "Fleet", "FleetShips", "RentalState", "Ship", "Star"}, names)
	rentalsNames := []string{}
	for _, e := range r.ForProgram(rentals.ProgramID) {
		rentalsNames = append(rentalsNames, e.Name)
	}
	assert.Equal(t, []string{"ContractState", "RentalState"}, rentalsNames)

	e, ok = r.ByName("ContractState")
	require.True(t, ok)
	assert.Equal(t, rentals.ContractStateDiscriminator, e.Discriminator)
}

func TestDefault_decode(t *testing.T) {
	star := &sage.Star{Name: "Sol", Sector: sage.Sector{1, 2}}
	data := star.AccountData()
	d, _ := account.DiscriminatorOf(data)

	e, ok := Default().Lookup(d)
	require.True(t, ok)
	rec, err := e.Decode(data[account.DiscriminatorSize:])
	require.NoError(t, err)
	assert.Equal(t, star, rec)
	assert.Equal(t, e.Relation, rec.Relation())

	rec, err = e.Decode(nil)
	assert.Error(t, err)
	assert.Nil(t, rec, "typed nil must not leak through the interface")
}

func TestNew_duplicate(t *testing.T) {
	e := Entry{Name: "a", Decode: func([]byte) (projection.Record, error) { return nil, nil }}
	assert.Panics(t, func() {
		New(e, e)
	})
	assert.Panics(t, func() {
		New(Entry{Name: "no-decoder"})
	})
}
