// Package sage decodes the account types of the SAGE game program.
package sage

import (
	"github.com/sagestream/sagestream/account"
)

// ProgramID is the address of the SAGE program
var ProgramID = account.MustParsePubkey("SAGE2HAwep459SNq61LHvjxPk4pLPEJLoMETef7f7EE")

// Account discriminators
var (
	FleetDiscriminator      = account.AnchorDiscriminator("Fleet")
	FleetShipsDiscriminator = account.AnchorDiscriminator("FleetShips")
	ShipDiscriminator       = account.AnchorDiscriminator("Ship")
	StarDiscriminator       = account.AnchorDiscriminator("Star")
)

// Relation names
const (
	RelationFleets          = "fleets"
	RelationFleetStates     = "fleet_states"
	RelationFleetShips      = "fleet_ships"
	RelationFleetShipsInfos = "fleet_ships_infos"
	RelationShips           = "ships"
	RelationStars           = "stars"
)

const (
	labelSize = 32
	nameSize  = 64
)

func withDiscriminator(d account.Discriminator, body []byte) []byte {
	out := make([]byte, 0, len(d)+len(body))
	out = append(out, d[:]...)
	return append(out, body...)
}
