package sage

import (
	"github.com/pkg/errors"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/layout"
	"github.com/sagestream/sagestream/projection"
)

// Ship is a registered ship type
type Ship struct {
	Version     uint8
	GameID      account.Pubkey
	Mint        account.Pubkey
	Name        string
	SizeClass   uint8
	Stats       ShipStats
	UpdateID    uint64
	MaxUpdateID uint64
	Next        account.Pubkey
}

func DecodeShip(data []byte) (*Ship, error) {
	c := layout.NewCursor(data)
	s := &Ship{
		Version:   c.U8(),
		GameID:    c.Pubkey(),
		Mint:      c.Pubkey(),
		Name:      c.Text(nameSize),
		SizeClass: c.U8(),
	}
	s.Stats.decode(c)
	s.UpdateID = c.U64()
	s.MaxUpdateID = c.U64()
	s.Next = c.Pubkey()
	if err := c.Err(); err != nil {
		return nil, errors.Wrap(err, "ship")
	}
	return s, nil
}

func (s *Ship) Marshal() []byte {
	w := layout.NewWriter(256)
	w.U8(s.Version)
	w.Pubkey(s.GameID)
	w.Pubkey(s.Mint)
	w.Text(s.Name, nameSize)
	w.U8(s.SizeClass)
	s.Stats.encode(w)
	w.U64(s.UpdateID)
	w.U64(s.MaxUpdateID)
	w.Pubkey(s.Next)
	return w.Bytes()
}

func (s *Ship) AccountData() []byte {
	return withDiscriminator(ShipDiscriminator, s.Marshal())
}

func (s *Ship) Relation() string { return RelationShips }

func (s *Ship) Fields() projection.Row {
	row := projection.Row{
		{Name: "version", Value: int64(s.Version)},
		{Name: "game_id", Value: projection.Key(s.GameID)},
		{Name: "mint", Value: projection.Key(s.Mint)},
		{Name: "name", Value: s.Name},
		{Name: "size_class", Value: int64(s.SizeClass)},
	}
	row = append(row, s.Stats.fields()...)
	return append(row,
		projection.Field{Name: "update_id", Value: projection.U64(s.UpdateID)},
		projection.Field{Name: "max_update_id", Value: projection.U64(s.MaxUpdateID)},
		projection.Field{Name: "next", Value: projection.Key(s.Next)},
	)
}
