package sage

import (
	"github.com/pkg/errors"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/layout"
	"github.com/sagestream/sagestream/projection"
)

// Fleet is a group of ships owned by a player profile
type Fleet struct {
	Version               uint8
	GameID                account.Pubkey
	OwnerProfile          account.Pubkey
	FleetShips            account.Pubkey
	SubProfile            account.Pubkey
	SubProfileInvalidator account.Pubkey
	Faction               uint8
	FleetLabel            string
	ShipCounts            ShipCounts
	WarpCooldownExpiresAt int64
	ScanCooldownExpiresAt int64
	Stats                 ShipStats
	CargoHold             account.Pubkey
	FuelTank              account.Pubkey
	AmmoBank              account.Pubkey
	UpdateID              uint64
	Bump                  uint8

	State FleetState
}

// DecodeFleet decodes the account data following the discriminator.
// Fleet accounts are allocated larger than their content, so any bytes after
// the state are ignored.
func DecodeFleet(data []byte) (*Fleet, error) {
	c := layout.NewCursor(data)
	f := &Fleet{
		Version:               c.U8(),
		GameID:                c.Pubkey(),
		OwnerProfile:          c.Pubkey(),
		FleetShips:            c.Pubkey(),
		SubProfile:            c.Pubkey(),
		SubProfileInvalidator: c.Pubkey(),
		Faction:               c.U8(),
		FleetLabel:            c.Text(labelSize),
	}
	f.ShipCounts.decode(c)
	f.WarpCooldownExpiresAt = c.I64()
	f.ScanCooldownExpiresAt = c.I64()
	f.Stats.decode(c)
	f.CargoHold = c.Pubkey()
	f.FuelTank = c.Pubkey()
	f.AmmoBank = c.Pubkey()
	f.UpdateID = c.U64()
	f.Bump = c.U8()
	if err := c.Err(); err != nil {
		return nil, errors.Wrap(err, "fleet")
	}
	st, err := decodeFleetState(c)
	if err != nil {
		return nil, errors.Wrap(err, "fleet state")
	}
	f.State = st
	return f, nil
}

// Marshal encodes the fleet without discriminator
func (f *Fleet) Marshal() []byte {
	w := layout.NewWriter(512)
	w.U8(f.Version)
	w.Pubkey(f.GameID)
	w.Pubkey(f.OwnerProfile)
	w.Pubkey(f.FleetShips)
	w.Pubkey(f.SubProfile)
	w.Pubkey(f.SubProfileInvalidator)
	w.U8(f.Faction)
	w.Text(f.FleetLabel, labelSize)
	f.ShipCounts.encode(w)
	w.I64(f.WarpCooldownExpiresAt)
	w.I64(f.ScanCooldownExpiresAt)
	f.Stats.encode(w)
	w.Pubkey(f.CargoHold)
	w.Pubkey(f.FuelTank)
	w.Pubkey(f.AmmoBank)
	w.U64(f.UpdateID)
	w.U8(f.Bump)
	encodeFleetState(w, f.State)
	return w.Bytes()
}

// AccountData returns the full account data including discriminator
func (f *Fleet) AccountData() []byte {
	return withDiscriminator(FleetDiscriminator, f.Marshal())
}

func (f *Fleet) Relation() string { return RelationFleets }

func (f *Fleet) Fields() projection.Row {
	row := projection.Row{
		{Name: "version", Value: int64(f.Version)},
		{Name: "game_id", Value: projection.Key(f.GameID)},
		{Name: "owner_profile", Value: projection.Key(f.OwnerProfile)},
		{Name: "fleet_ships", Value: projection.Key(f.FleetShips)},
		{Name: "sub_profile", Value: projection.Key(f.SubProfile)},
		{Name: "sub_profile_invalidator", Value: projection.Key(f.SubProfileInvalidator)},
		{Name: "faction", Value: int64(f.Faction)},
		{Name: "fleet_label", Value: f.FleetLabel},
	}
	row = append(row, f.ShipCounts.fields()...)
	row = append(row,
		projection.Field{Name: "warp_cooldown_expires_at", Value: f.WarpCooldownExpiresAt},
		projection.Field{Name: "scan_cooldown_expires_at", Value: f.ScanCooldownExpiresAt},
	)
	row = append(row, f.Stats.fields()...)
	row = append(row,
		projection.Field{Name: "cargo_hold", Value: projection.Key(f.CargoHold)},
		projection.Field{Name: "fuel_tank", Value: projection.Key(f.FuelTank)},
		projection.Field{Name: "ammo_bank", Value: projection.Key(f.AmmoBank)},
		projection.Field{Name: "update_id", Value: projection.U64(f.UpdateID)},
	)
	return row
}

// Related returns the fleet state row
func (f *Fleet) Related() []projection.Record {
	return []projection.Record{FleetStateRecord{State: f.State}}
}
