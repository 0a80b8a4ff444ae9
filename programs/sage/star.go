package sage

import (
	"github.com/pkg/errors"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/layout"
	"github.com/sagestream/sagestream/projection"
)

type Star struct {
	Version  uint8
	Name     string
	GameID   account.Pubkey
	Size     uint64
	Sector   Sector
	StarType uint8
}

func DecodeStar(data []byte) (*Star, error) {
	c := layout.NewCursor(data)
	s := &Star{
		Version:  c.U8(),
		Name:     c.Text(nameSize),
		GameID:   c.Pubkey(),
		Size:     c.U64(),
		Sector:   readSector(c),
		StarType: c.U8(),
	}
	if err := c.Err(); err != nil {
		return nil, errors.Wrap(err, "star")
	}
	return s, nil
}

func (s *Star) Marshal() []byte {
	w := layout.NewWriter(128)
	w.U8(s.Version)
	w.Text(s.Name, nameSize)
	w.Pubkey(s.GameID)
	w.U64(s.Size)
	w.I64Pair(s.Sector)
	w.U8(s.StarType)
	return w.Bytes()
}

func (s *Star) AccountData() []byte {
	return withDiscriminator(StarDiscriminator, s.Marshal())
}

func (s *Star) Relation() string { return RelationStars }

func (s *Star) Fields() projection.Row {
	return projection.Row{
		{Name: "version", Value: int64(s.Version)},
		{Name: "name", Value: s.Name},
		{Name: "game_id", Value: projection.Key(s.GameID)},
		{Name: "size", Value: projection.U64(s.Size)},
		{Name: "sector_x", Value: s.Sector[0]},
		{Name: "sector_y", Value: s.Sector[1]},
		{Name: "star_type", Value: int64(s.StarType)},
	}
}
