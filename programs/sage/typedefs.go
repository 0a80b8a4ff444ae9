package sage

import (
	"github.com/sagestream/sagestream/layout"
	"github.com/sagestream/sagestream/projection"
)

// Sector is an [x, y] grid coordinate
type Sector [2]int64

func readSector(c *layout.Cursor) Sector {
	return c.I64Pair()
}

// ShipCounts counts the ships in a fleet by size class
type ShipCounts struct {
	Total     uint32
	Updated   uint32
	XXSmall   uint16
	XSmall    uint16
	Small     uint16
	Medium    uint16
	Large     uint16
	Capital   uint16
	Commander uint16
	Titan     uint16
}

func (s *ShipCounts) decode(c *layout.Cursor) {
	s.Total = c.U32()
	s.Updated = c.U32()
	s.XXSmall = c.U16()
	s.XSmall = c.U16()
	s.Small = c.U16()
	s.Medium = c.U16()
	s.Large = c.U16()
	s.Capital = c.U16()
	s.Commander = c.U16()
	s.Titan = c.U16()
}

func (s ShipCounts) encode(w *layout.Writer) {
	w.U32(s.Total)
	w.U32(s.Updated)
	w.U16(s.XXSmall)
	w.U16(s.XSmall)
	w.U16(s.Small)
	w.U16(s.Medium)
	w.U16(s.Large)
	w.U16(s.Capital)
	w.U16(s.Commander)
	w.U16(s.Titan)
}

func (s ShipCounts) fields() projection.Row {
	return projection.Row{
		{Name: "ships_total", Value: int64(s.Total)},
		{Name: "ships_updated", Value: int64(s.Updated)},
		{Name: "ships_xx_small", Value: int64(s.XXSmall)},
		{Name: "ships_x_small", Value: int64(s.XSmall)},
		{Name: "ships_small", Value: int64(s.Small)},
		{Name: "ships_medium", Value: int64(s.Medium)},
		{Name: "ships_large", Value: int64(s.Large)},
		{Name: "ships_capital", Value: int64(s.Capital)},
		{Name: "ships_commander", Value: int64(s.Commander)},
		{Name: "ships_titan", Value: int64(s.Titan)},
	}
}

type MovementStats struct {
	SubwarpSpeed               uint32
	WarpSpeed                  uint32
	MaxWarpDistance            uint16
	WarpCoolDown               uint16
	SubwarpFuelConsumptionRate uint32
	WarpFuelConsumptionRate    uint32
	PlanetExitFuelAmount       uint32
}

type CargoStats struct {
	CargoCapacity         uint32
	FuelCapacity          uint32
	AmmoCapacity          uint32
	AmmoConsumptionRate   uint32
	FoodConsumptionRate   uint32
	MiningRate            uint32
	UpgradeRate           uint32
	CargoTransferRate     uint32
	TractorBeamGatherRate uint32
}

type MiscStats struct {
	RequiredCrew      uint16
	PassengerCapacity uint16
	CrewCount         uint16
	RentedCrew        uint16
	RespawnTime       uint16
	ScanCoolDown      uint16
	SDUPerScan        uint32
	ScanCost          uint32
	Placeholder       uint32
	Placeholder2      uint32
	Placeholder3      uint32
}

// ShipStats holds the combined stats of a ship or fleet
type ShipStats struct {
	Movement MovementStats
	Cargo    CargoStats
	Misc     MiscStats
}

func (s *ShipStats) decode(c *layout.Cursor) {
	m := &s.Movement
	m.SubwarpSpeed = c.U32()
	m.WarpSpeed = c.U32()
	m.MaxWarpDistance = c.U16()
	m.WarpCoolDown = c.U16()
	m.SubwarpFuelConsumptionRate = c.U32()
	m.WarpFuelConsumptionRate = c.U32()
	m.PlanetExitFuelAmount = c.U32()

	cs := &s.Cargo
	cs.CargoCapacity = c.U32()
	cs.FuelCapacity = c.U32()
	cs.AmmoCapacity = c.U32()
	cs.AmmoConsumptionRate = c.U32()
	cs.FoodConsumptionRate = c.U32()
	cs.MiningRate = c.U32()
	cs.UpgradeRate = c.U32()
	cs.CargoTransferRate = c.U32()
	cs.TractorBeamGatherRate = c.U32()

	ms := &s.Misc
	ms.RequiredCrew = c.U16()
	ms.PassengerCapacity = c.U16()
	ms.CrewCount = c.U16()
	ms.RentedCrew = c.U16()
	ms.RespawnTime = c.U16()
	ms.ScanCoolDown = c.U16()
	ms.SDUPerScan = c.U32()
	ms.ScanCost = c.U32()
	ms.Placeholder = c.U32()
	ms.Placeholder2 = c.U32()
	ms.Placeholder3 = c.U32()
}

func (s ShipStats) encode(w *layout.Writer) {
	m := s.Movement
	w.U32(m.SubwarpSpeed)
	w.U32(m.WarpSpeed)
	w.U16(m.MaxWarpDistance)
	w.U16(m.WarpCoolDown)
	w.U32(m.SubwarpFuelConsumptionRate)
	w.U32(m.WarpFuelConsumptionRate)
	w.U32(m.PlanetExitFuelAmount)

	cs := s.Cargo
	w.U32(cs.CargoCapacity)
	w.U32(cs.FuelCapacity)
	w.U32(cs.AmmoCapacity)
	w.U32(cs.AmmoConsumptionRate)
	w.U32(cs.FoodConsumptionRate)
	w.U32(cs.MiningRate)
	w.U32(cs.UpgradeRate)
	w.U32(cs.CargoTransferRate)
	w.U32(cs.TractorBeamGatherRate)

	ms := s.Misc
	w.U16(ms.RequiredCrew)
	w.U16(ms.PassengerCapacity)
	w.U16(ms.CrewCount)
	w.U16(ms.RentedCrew)
	w.U16(ms.RespawnTime)
	w.U16(ms.ScanCoolDown)
	w.U32(ms.SDUPerScan)
	w.U32(ms.ScanCost)
	w.U32(ms.Placeholder)
	w.U32(ms.Placeholder2)
	w.U32(ms.Placeholder3)
}

// fields only projects the stats that are useful to query on
func (s ShipStats) fields() projection.Row {
	return projection.Row{
		{Name: "subwarp_speed", Value: int64(s.Movement.SubwarpSpeed)},
		{Name: "warp_speed", Value: int64(s.Movement.WarpSpeed)},
		{Name: "max_warp_distance", Value: int64(s.Movement.MaxWarpDistance)},
		{Name: "cargo_capacity", Value: int64(s.Cargo.CargoCapacity)},
		{Name: "fuel_capacity", Value: int64(s.Cargo.FuelCapacity)},
		{Name: "ammo_capacity", Value: int64(s.Cargo.AmmoCapacity)},
		{Name: "mining_rate", Value: int64(s.Cargo.MiningRate)},
		{Name: "required_crew", Value: int64(s.Misc.RequiredCrew)},
		{Name: "crew_count", Value: int64(s.Misc.CrewCount)},
		{Name: "scan_cost", Value: int64(s.Misc.ScanCost)},
	}
}
