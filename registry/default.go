package registry

import (
	"sync"

	"github.com/sagestream/sagestream/programs/rentals"
	"github.com/sagestream/sagestream/programs/sage"
	"github.com/sagestream/sagestream/projection"
)

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process wide registry with all supported account types.
// To support a new account type, add it to the list below.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New(
			Entry{
				Name:          "Fleet",
				Program:       sage.ProgramID,
				Discriminator: sage.FleetDiscriminator,
				Relation:      sage.RelationFleets,
				Decode:        wrap(sage.DecodeFleet),
			},
			Entry{
				Name:          "FleetShips",
				Program:       sage.ProgramID,
				Discriminator: sage.FleetShipsDiscriminator,
				Relation:      sage.RelationFleetShips,
				Decode:        wrap(sage.DecodeFleetShips),
			},
			Entry{
				Name:          "Ship",
				Program:       sage.ProgramID,
				Discriminator: sage.ShipDiscriminator,
				Relation:      sage.RelationShips,
				Decode:        wrap(sage.DecodeShip),
			},
			Entry{
				Name:          "Star",
				Program:       sage.ProgramID,
				Discriminator: sage.StarDiscriminator,
				Relation:      sage.RelationStars,
				Decode:        wrap(sage.DecodeStar),
			},
			Entry{
				Name:          "ContractState",
				Program:       rentals.ProgramID,
				Discriminator: rentals.ContractStateDiscriminator,
				Relation:      rentals.RelationContractStates,
				Decode:        wrap(rentals.DecodeContractState),
			},
			Entry{
				Name:          "RentalState",
				Program:       rentals.ProgramID,
				Discriminator: rentals.RentalStateDiscriminator,
				Relation:      rentals.RelationRentalStates,
				Decode:        wrap(rentals.DecodeRentalState),
			},
		)
	})
	return defaultRegistry
}

// wrap adapts a typed decoder to a DecodeFunc
func wrap[T projection.Record](decode func([]byte) (T, error)) DecodeFunc {
	return func(data []byte) (projection.Record, error) {
		rec, err := decode(data)
		if err != nil {
			return nil, err
		}
		return rec, nil
	}
}
