package sage

import (
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/layout"
	"github.com/sagestream/sagestream/projection"
)

func key(b byte) account.Pubkey {
	var p account.Pubkey
	for i := range p {
		p[i] = b
	}
	return p
}

func testFleet(st FleetState) *Fleet {
	return &Fleet{
		Version:               1,
		GameID:                key(1),
		OwnerProfile:          key(2),
		FleetShips:            key(3),
		SubProfile:            key(4),
		SubProfileInvalidator: key(5),
		Faction:               2,
		FleetLabel:            "Mining Fleet 1",
		ShipCounts: ShipCounts{
			Total: 10, Updated: 10, XXSmall: 1, XSmall: 2, Small: 3, Medium: 4,
			Large: math.MaxUint16, Capital: 0, Commander: 0, Titan: 0,
		},
		WarpCooldownExpiresAt: 1700000000,
		ScanCooldownExpiresAt: -1,
		Stats: ShipStats{
			Movement: MovementStats{SubwarpSpeed: 1, WarpSpeed: 2, MaxWarpDistance: 3, WarpCoolDown: 4,
				SubwarpFuelConsumptionRate: 5, WarpFuelConsumptionRate: 6, PlanetExitFuelAmount: 7},
			Cargo: CargoStats{CargoCapacity: math.MaxUint32, FuelCapacity: 9, AmmoCapacity: 10,
				AmmoConsumptionRate: 11, FoodConsumptionRate: 12, MiningRate: 13, UpgradeRate: 14,
				CargoTransferRate: 15, TractorBeamGatherRate: 16},
			Misc: MiscStats{RequiredCrew: 17, PassengerCapacity: 18, CrewCount: 19, RentedCrew: 20,
				RespawnTime: 21, ScanCoolDown: 22, SDUPerScan: 23, ScanCost: 24, Placeholder: 25,
				Placeholder2: 26, Placeholder3: 27},
		},
		CargoHold: key(6),
		FuelTank:  key(7),
		AmmoBank:  key(8),
		UpdateID:  math.MaxUint64,
		Bump:      255,
		State:     st,
	}
}

var allStates = []FleetState{
	StarbaseLoadingBay{Starbase: key(9), LastUpdate: 100},
	Idle{Sector: Sector{-40, 30}},
	MineAsteroid{Asteroid: key(10), Resource: key(11), Start: 1, End: 2, AmountMined: math.MaxUint64, LastUpdate: 3},
	MoveWarp{FromSector: Sector{0, 0}, ToSector: Sector{math.MinInt64, math.MaxInt64}, WarpStart: 5, WarpFinish: 6},
	MoveSubwarp{FromSector: Sector{1, 2}, ToSector: Sector{3, 4}, CurrentSector: Sector{2, 3},
		DepartureTime: 7, ArrivalTime: 8, FuelExpenditure: 9, LastUpdate: 10},
	Respawn{Sector: Sector{-1, -1}, Start: 11},
}

func TestFleet_roundtrip(t *testing.T) {
	for _, st := range allStates {
		t.Run(st.Kind(), func(t *testing.T) {
			f := testFleet(st)
			got, err := DecodeFleet(f.Marshal())
			require.NoError(t, err)
			assert.Equal(t, f, got)
		})
	}
}

func TestFleet_emptyLabel(t *testing.T) {
	f := testFleet(Idle{})
	f.FleetLabel = ""
	got, err := DecodeFleet(f.Marshal())
	require.NoError(t, err)
	assert.Equal(t, "", got.FleetLabel)
}

func TestFleet_extraSpaceIgnored(t *testing.T) {
	f := testFleet(Idle{Sector: Sector{1, 2}})
	data := append(f.Marshal(), make([]byte, 100)...)
	got, err := DecodeFleet(data)
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestFleet_unknownVariant(t *testing.T) {
	f := testFleet(Idle{})
	data := f.Marshal()
	tagPos := len(data) - 17 // tag + [i64; 2]
	require.Equal(t, TagIdle, data[tagPos])

	for _, tag := range []uint8{6, 7, 200, 255} {
		data[tagPos] = tag
		_, err := DecodeFleet(data)
		var uv layout.UnknownVariantError
		require.True(t, errors.As(err, &uv), "tag %d", tag)
		assert.Equal(t, tag, uv.Tag)
		assert.Equal(t, "FleetState", uv.Type)
	}
}

func TestFleet_truncated(t *testing.T) {
	data := testFleet(MoveSubwarp{}).Marshal()
	for _, n := range []int{0, 1, 50, len(data) / 2, len(data) - 1} {
		_, err := DecodeFleet(data[:n])
		assert.True(t, errors.Is(err, layout.ErrTruncatedInput), "length %d", n)
	}
}

func TestFleet_fields(t *testing.T) {
	f := testFleet(Idle{})
	row := f.Fields()
	v, ok := row.Get("sub_profile")
	require.True(t, ok)
	assert.Equal(t, projection.Key(f.SubProfile), v)
	v, ok = row.Get("sub_profile_invalidator")
	require.True(t, ok)
	assert.Equal(t, projection.Key(key(5)), v)
}

func TestFleetState_fields(t *testing.T) {
	row := FleetStateRecord{State: MoveWarp{FromSector: Sector{1, 2}, ToSector: Sector{3, 4}, WarpStart: 5, WarpFinish: 6}}.Fields()
	assert.Len(t, row, len(stateColumns))
	v, _ := row.Get("state")
	assert.Equal(t, "MoveWarp", v)
	v, _ = row.Get("to_y")
	assert.Equal(t, int64(4), v)
	v, ok := row.Get("sector_x")
	assert.True(t, ok)
	assert.Nil(t, v, "columns of other variants must be cleared")
}

func testFleetShips(n int) *FleetShips {
	fs := &FleetShips{Version: 1, Fleet: key(1), Bump: 254}
	for i := 0; i < n; i++ {
		fs.Ships = append(fs.Ships, FleetShipsInfo{Ship: key(byte(10 + i)), Amount: uint64(i + 1), UpdateID: math.MaxUint64})
	}
	return fs
}

func TestFleetShips_roundtrip(t *testing.T) {
	for _, n := range []int{0, 1, 3, 100} {
		fs := testFleetShips(n)
		got, err := DecodeFleetShips(fs.Marshal())
		require.NoError(t, err)
		assert.Equal(t, fs, got)

		rel, children := got.Children()
		assert.Equal(t, RelationFleetShipsInfos, rel)
		assert.Len(t, children, n)
	}
}

func TestFleetShips_countMismatch(t *testing.T) {
	const countPos = 1 + 32

	t.Run("overstated", func(t *testing.T) {
		data := testFleetShips(2).Marshal()
		data[countPos] = 3
		_, err := DecodeFleetShips(data)
		assert.True(t, errors.Is(err, layout.ErrTruncatedInput), "got %v", err)
	})

	t.Run("understated", func(t *testing.T) {
		data := testFleetShips(3).Marshal()
		data[countPos] = 2
		_, err := DecodeFleetShips(data)
		var tb layout.TrailingBytesError
		require.True(t, errors.As(err, &tb), "got %v", err)
		assert.Equal(t, fleetShipsInfoSize, tb.Remaining)
	})

	t.Run("partial-entry", func(t *testing.T) {
		data := testFleetShips(2).Marshal()
		_, err := DecodeFleetShips(data[:len(data)-1])
		assert.True(t, errors.Is(err, layout.ErrTruncatedInput))
	})

	t.Run("huge-count", func(t *testing.T) {
		data := testFleetShips(1).Marshal()
		data[countPos+3] = 0xff
		_, err := DecodeFleetShips(data)
		assert.True(t, errors.Is(err, layout.ErrTruncatedInput))
	})
}

func TestShip_roundtrip(t *testing.T) {
	s := &Ship{
		Version:     1,
		GameID:      key(1),
		Mint:        key(2),
		Name:        strings.Repeat("x", nameSize),
		SizeClass:   4,
		Stats:       testFleet(Idle{}).Stats,
		UpdateID:    1,
		MaxUpdateID: math.MaxUint64,
	}
	got, err := DecodeShip(s.Marshal())
	require.NoError(t, err)
	assert.Equal(t, s, got)

	_, err = DecodeShip(s.Marshal()[:10])
	assert.True(t, errors.Is(err, layout.ErrTruncatedInput))
}

func TestStar_roundtrip(t *testing.T) {
	tests := []*Star{
		{Version: 1, Name: "Sol", GameID: key(3), Size: 42, Sector: Sector{-25, 14}, StarType: 2},
		{},
		{Name: "Ünïcødé ★", Size: math.MaxUint64, Sector: Sector{math.MinInt64, math.MaxInt64}},
	}
	for _, s := range tests {
		got, err := DecodeStar(s.Marshal())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestAccountData(t *testing.T) {
	s := &Star{Name: "Sol"}
	d, ok := account.DiscriminatorOf(s.AccountData())
	require.True(t, ok)
	assert.Equal(t, StarDiscriminator, d)
	assert.Equal(t, account.Discriminator{214, 131, 207, 208, 202, 148, 162, 48}, d)
	assert.Equal(t, account.Discriminator{114, 41, 245, 232, 24, 58, 234, 158}, ShipDiscriminator)
}
