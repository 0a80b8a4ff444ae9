package sage

import (
	"github.com/pkg/errors"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/layout"
	"github.com/sagestream/sagestream/projection"
)

// fleetShipsInfoSize is the encoded size of one FleetShipsInfo
const fleetShipsInfoSize = account.PubkeySize + 8 + 8

// FleetShips lists the ships that make up a fleet. The entries follow the
// fixed fields and the account must end exactly after the last entry.
type FleetShips struct {
	Version uint8
	Fleet   account.Pubkey
	Bump    uint8
	Ships   []FleetShipsInfo
}

// FleetShipsInfo is one entry of a FleetShips account
type FleetShipsInfo struct {
	Ship     account.Pubkey
	Amount   uint64
	UpdateID uint64
}

func DecodeFleetShips(data []byte) (*FleetShips, error) {
	c := layout.NewCursor(data)
	fs := &FleetShips{
		Version: c.U8(),
		Fleet:   c.Pubkey(),
	}
	count := c.U32()
	fs.Bump = c.U8()
	if err := c.Err(); err != nil {
		return nil, errors.Wrap(err, "fleet ships")
	}

	// Take the whole array at once, so that an overstated count fails before
	// anything is allocated or decoded.
	block, err := c.Take(int(count) * fleetShipsInfoSize)
	if err != nil {
		return nil, errors.Wrapf(err, "fleet ships: %d entries", count)
	}
	if err := c.Finish(); err != nil {
		return nil, errors.Wrapf(err, "fleet ships: %d entries", count)
	}

	if count > 0 {
		fs.Ships = make([]FleetShipsInfo, count)
		bc := layout.NewCursor(block)
		for i := range fs.Ships {
			fs.Ships[i] = FleetShipsInfo{
				Ship:     bc.Pubkey(),
				Amount:   bc.U64(),
				UpdateID: bc.U64(),
			}
		}
		if err := bc.Finish(); err != nil {
			return nil, errors.Wrap(err, "fleet ships entries")
		}
	}
	return fs, nil
}

func (fs *FleetShips) Marshal() []byte {
	w := layout.NewWriter(38 + len(fs.Ships)*fleetShipsInfoSize)
	w.U8(fs.Version)
	w.Pubkey(fs.Fleet)
	w.U32(uint32(len(fs.Ships)))
	w.U8(fs.Bump)
	for _, s := range fs.Ships {
		w.Pubkey(s.Ship)
		w.U64(s.Amount)
		w.U64(s.UpdateID)
	}
	return w.Bytes()
}

func (fs *FleetShips) AccountData() []byte {
	return withDiscriminator(FleetShipsDiscriminator, fs.Marshal())
}

func (fs *FleetShips) Relation() string { return RelationFleetShips }

func (fs *FleetShips) Fields() projection.Row {
	return projection.Row{
		{Name: "version", Value: int64(fs.Version)},
		{Name: "fleet", Value: projection.Key(fs.Fleet)},
		{Name: "ship_count", Value: int64(len(fs.Ships))},
	}
}

// Children returns one row per entry, in account order
func (fs *FleetShips) Children() (string, []projection.Record) {
	children := make([]projection.Record, len(fs.Ships))
	for i, s := range fs.Ships {
		children[i] = s
	}
	return RelationFleetShipsInfos, children
}

func (s FleetShipsInfo) Relation() string { return RelationFleetShipsInfos }

func (s FleetShipsInfo) Fields() projection.Row {
	return projection.Row{
		{Name: "ship", Value: projection.Key(s.Ship)},
		{Name: "amount", Value: projection.U64(s.Amount)},
		{Name: "update_id", Value: projection.U64(s.UpdateID)},
	}
}
