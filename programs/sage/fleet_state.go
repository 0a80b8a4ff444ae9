package sage

import (
	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/layout"
	"github.com/sagestream/sagestream/projection"
)

// FleetState is the tagged union that follows the Fleet account fields.
// It is implemented by the variant types in this file only.
type FleetState interface {
	Tag() uint8
	Kind() string
	encode(w *layout.Writer)
	fill(row stateRow)
}

// Variant tags in on-chain order
const (
	TagStarbaseLoadingBay uint8 = iota
	TagIdle
	TagMineAsteroid
	TagMoveWarp
	TagMoveSubwarp
	TagRespawn
)

type StarbaseLoadingBay struct {
	Starbase   account.Pubkey
	LastUpdate int64
}

type Idle struct {
	Sector Sector
}

type MineAsteroid struct {
	Asteroid    account.Pubkey
	Resource    account.Pubkey
	Start       int64
	End         int64
	AmountMined uint64
	LastUpdate  int64
}

type MoveWarp struct {
	FromSector Sector
	ToSector   Sector
	WarpStart  int64
	WarpFinish int64
}

type MoveSubwarp struct {
	FromSector      Sector
	ToSector        Sector
	CurrentSector   Sector
	DepartureTime   int64
	ArrivalTime     int64
	FuelExpenditure uint64
	LastUpdate      int64
}

type Respawn struct {
	Sector Sector
	Start  int64
}

func (StarbaseLoadingBay) Tag() uint8 { return TagStarbaseLoadingBay }
func (Idle) Tag() uint8               { return TagIdle }
func (MineAsteroid) Tag() uint8       { return TagMineAsteroid }
func (MoveWarp) Tag() uint8           { return TagMoveWarp }
func (MoveSubwarp) Tag() uint8        { return TagMoveSubwarp }
func (Respawn) Tag() uint8            { return TagRespawn }

func (StarbaseLoadingBay) Kind() string { return "StarbaseLoadingBay" }
func (Idle) Kind() string               { return "Idle" }
func (MineAsteroid) Kind() string       { return "MineAsteroid" }
func (MoveWarp) Kind() string           { return "MoveWarp" }
func (MoveSubwarp) Kind() string        { return "MoveSubwarp" }
func (Respawn) Kind() string            { return "Respawn" }

// decodeFleetState reads the variant tag and the payload for that variant
func decodeFleetState(c *layout.Cursor) (FleetState, error) {
	tag := c.U8()
	if err := c.Err(); err != nil {
		return nil, err
	}
	var st FleetState
	switch tag {
	case TagStarbaseLoadingBay:
		st = StarbaseLoadingBay{
			Starbase:   c.Pubkey(),
			LastUpdate: c.I64(),
		}
	case TagIdle:
		st = Idle{
			Sector: readSector(c),
		}
	case TagMineAsteroid:
		st = MineAsteroid{
			Asteroid:    c.Pubkey(),
			Resource:    c.Pubkey(),
			Start:       c.I64(),
			End:         c.I64(),
			AmountMined: c.U64(),
			LastUpdate:  c.I64(),
		}
	case TagMoveWarp:
		st = MoveWarp{
			FromSector: readSector(c),
			ToSector:   readSector(c),
			WarpStart:  c.I64(),
			WarpFinish: c.I64(),
		}
	case TagMoveSubwarp:
		st = MoveSubwarp{
			FromSector:      readSector(c),
			ToSector:        readSector(c),
			CurrentSector:   readSector(c),
			DepartureTime:   c.I64(),
			ArrivalTime:     c.I64(),
			FuelExpenditure: c.U64(),
			LastUpdate:      c.I64(),
		}
	case TagRespawn:
		st = Respawn{
			Sector: readSector(c),
			Start:  c.I64(),
		}
	default:
		return nil, layout.UnknownVariantError{Type: "FleetState", Tag: tag}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return st, nil
}

func encodeFleetState(w *layout.Writer, st FleetState) {
	w.U8(st.Tag())
	st.encode(w)
}

func (v StarbaseLoadingBay) encode(w *layout.Writer) {
	w.Pubkey(v.Starbase)
	w.I64(v.LastUpdate)
}

func (v Idle) encode(w *layout.Writer) {
	w.I64Pair(v.Sector)
}

func (v MineAsteroid) encode(w *layout.Writer) {
	w.Pubkey(v.Asteroid)
	w.Pubkey(v.Resource)
	w.I64(v.Start)
	w.I64(v.End)
	w.U64(v.AmountMined)
	w.I64(v.LastUpdate)
}

func (v MoveWarp) encode(w *layout.Writer) {
	w.I64Pair(v.FromSector)
	w.I64Pair(v.ToSector)
	w.I64(v.WarpStart)
	w.I64(v.WarpFinish)
}

func (v MoveSubwarp) encode(w *layout.Writer) {
	w.I64Pair(v.FromSector)
	w.I64Pair(v.ToSector)
	w.I64Pair(v.CurrentSector)
	w.I64(v.DepartureTime)
	w.I64(v.ArrivalTime)
	w.U64(v.FuelExpenditure)
	w.I64(v.LastUpdate)
}

func (v Respawn) encode(w *layout.Writer) {
	w.I64Pair(v.Sector)
	w.I64(v.Start)
}

// FleetStateRecord is the row for the fleet_states relation. Every variant
// writes every column, with NULL for the ones it does not carry, so that a
// state change never leaves columns of the previous variant behind.
type FleetStateRecord struct {
	State FleetState
}

func (FleetStateRecord) Relation() string { return RelationFleetStates }

func (r FleetStateRecord) Fields() projection.Row {
	row := newStateRow()
	row.set("state", r.State.Kind())
	r.State.fill(row)
	return row.fields()
}

var stateColumns = []string{
	"state",
	"starbase", "asteroid", "resource",
	"sector_x", "sector_y",
	"from_x", "from_y", "to_x", "to_y",
	"current_x", "current_y",
	"start_time", "end_time",
	"amount_mined", "fuel_expenditure",
	"last_update",
}

type stateRow map[string]any

func newStateRow() stateRow {
	return make(stateRow, len(stateColumns))
}

func (r stateRow) set(name string, v any) {
	r[name] = v
}

func (r stateRow) sector(prefix string, s Sector) {
	r[prefix+"_x"] = s[0]
	r[prefix+"_y"] = s[1]
}

func (r stateRow) fields() projection.Row {
	row := make(projection.Row, 0, len(stateColumns))
	for _, name := range stateColumns {
		row = append(row, projection.Field{Name: name, Value: r[name]})
	}
	return row
}

func (v StarbaseLoadingBay) fill(r stateRow) {
	r.set("starbase", projection.Key(v.Starbase))
	r.set("last_update", v.LastUpdate)
}

func (v Idle) fill(r stateRow) {
	r.sector("sector", v.Sector)
}

func (v MineAsteroid) fill(r stateRow) {
	r.set("asteroid", projection.Key(v.Asteroid))
	r.set("resource", projection.Key(v.Resource))
	r.set("start_time", v.Start)
	r.set("end_time", v.End)
	r.set("amount_mined", projection.U64(v.AmountMined))
	r.set("last_update", v.LastUpdate)
}

func (v MoveWarp) fill(r stateRow) {
	r.sector("from", v.FromSector)
	r.sector("to", v.ToSector)
	r.set("start_time", v.WarpStart)
	r.set("end_time", v.WarpFinish)
}

func (v MoveSubwarp) fill(r stateRow) {
	r.sector("from", v.FromSector)
	r.sector("to", v.ToSector)
	r.sector("current", v.CurrentSector)
	r.set("start_time", v.DepartureTime)
	r.set("end_time", v.ArrivalTime)
	r.set("fuel_expenditure", projection.U64(v.FuelExpenditure))
	r.set("last_update", v.LastUpdate)
}

func (v Respawn) fill(r stateRow) {
	r.sector("sector", v.Sector)
	r.set("start_time", v.Start)
}
