// Package rentals decodes the account types of the fleet rentals program.
package rentals

import (
	"github.com/pkg/errors"

	"github.com/sagestream/sagestream/account"
	"github.com/sagestream/sagestream/layout"
	"github.com/sagestream/sagestream/projection"
)

var ProgramID = account.MustParsePubkey("SRSLY1fq9TJqCk1gNSE7VZL2bztvTn9wm4VR8u8jMKT")

var (
	ContractStateDiscriminator = account.AnchorDiscriminator("ContractState")
	RentalStateDiscriminator   = account.AnchorDiscriminator("RentalState")
)

const (
	RelationContractStates = "contract_states"
	RelationRentalStates   = "rental_states"
)

// ContractState is a fleet offered for rent by its owner
type ContractState struct {
	Version            uint8
	ToClose            bool
	Rate               uint64 // per payment period
	DurationMin        uint64
	DurationMax        uint64
	PaymentFreq        uint8
	Fleet              account.Pubkey
	GameID             account.Pubkey
	CurrentRentalState account.Pubkey // zero key when not rented
	Owner              account.Pubkey
	OwnerTokenAccount  account.Pubkey
	OwnerProfile       account.Pubkey
	Bump               uint8
}

func DecodeContractState(data []byte) (*ContractState, error) {
	c := layout.NewCursor(data)
	cs := &ContractState{
		Version:            c.U8(),
		ToClose:            c.Bool(),
		Rate:               c.U64(),
		DurationMin:        c.U64(),
		DurationMax:        c.U64(),
		PaymentFreq:        c.U8(),
		Fleet:              c.Pubkey(),
		GameID:             c.Pubkey(),
		CurrentRentalState: c.Pubkey(),
		Owner:              c.Pubkey(),
		OwnerTokenAccount:  c.Pubkey(),
		OwnerProfile:       c.Pubkey(),
		Bump:               c.U8(),
	}
	if err := c.Err(); err != nil {
		return nil, errors.Wrap(err, "contract state")
	}
	return cs, nil
}

func (cs *ContractState) Marshal() []byte {
	w := layout.NewWriter(230)
	w.U8(cs.Version)
	w.Bool(cs.ToClose)
	w.U64(cs.Rate)
	w.U64(cs.DurationMin)
	w.U64(cs.DurationMax)
	w.U8(cs.PaymentFreq)
	w.Pubkey(cs.Fleet)
	w.Pubkey(cs.GameID)
	w.Pubkey(cs.CurrentRentalState)
	w.Pubkey(cs.Owner)
	w.Pubkey(cs.OwnerTokenAccount)
	w.Pubkey(cs.OwnerProfile)
	w.U8(cs.Bump)
	return w.Bytes()
}

func (cs *ContractState) AccountData() []byte {
	return withDiscriminator(ContractStateDiscriminator, cs.Marshal())
}

func (cs *ContractState) Relation() string { return RelationContractStates }

func (cs *ContractState) Fields() projection.Row {
	return projection.Row{
		{Name: "version", Value: int64(cs.Version)},
		{Name: "to_close", Value: cs.ToClose},
		{Name: "rate", Value: projection.U64(cs.Rate)},
		{Name: "duration_min", Value: projection.U64(cs.DurationMin)},
		{Name: "duration_max", Value: projection.U64(cs.DurationMax)},
		{Name: "payment_freq", Value: int64(cs.PaymentFreq)},
		{Name: "fleet", Value: projection.Key(cs.Fleet)},
		{Name: "game_id", Value: projection.Key(cs.GameID)},
		{Name: "current_rental_state", Value: projection.Key(cs.CurrentRentalState)},
		{Name: "owner", Value: projection.Key(cs.Owner)},
		{Name: "owner_token_account", Value: projection.Key(cs.OwnerTokenAccount)},
		{Name: "owner_profile", Value: projection.Key(cs.OwnerProfile)},
	}
}

// RentalState is an active rental of a contract by a borrower
type RentalState struct {
	Version              uint8
	Contract             account.Pubkey
	Borrower             account.Pubkey
	BorrowerProfile      account.Pubkey
	BorrowerTokenAccount account.Pubkey
	Fleet                account.Pubkey
	Rate                 uint64
	StartTime            int64
	EndTime              int64
	LastPaymentTime      int64
	Bump                 uint8
}

func DecodeRentalState(data []byte) (*RentalState, error) {
	c := layout.NewCursor(data)
	rs := &RentalState{
		Version:              c.U8(),
		Contract:             c.Pubkey(),
		Borrower:             c.Pubkey(),
		BorrowerProfile:      c.Pubkey(),
		BorrowerTokenAccount: c.Pubkey(),
		Fleet:                c.Pubkey(),
		Rate:                 c.U64(),
		StartTime:            c.I64(),
		EndTime:              c.I64(),
		LastPaymentTime:      c.I64(),
		Bump:                 c.U8(),
	}
	if err := c.Err(); err != nil {
		return nil, errors.Wrap(err, "rental state")
	}
	return rs, nil
}

func (rs *RentalState) Marshal() []byte {
	w := layout.NewWriter(200)
	w.U8(rs.Version)
	w.Pubkey(rs.Contract)
	w.Pubkey(rs.Borrower)
	w.Pubkey(rs.BorrowerProfile)
	w.Pubkey(rs.BorrowerTokenAccount)
	w.Pubkey(rs.Fleet)
	w.U64(rs.Rate)
	w.I64(rs.StartTime)
	w.I64(rs.EndTime)
	w.I64(rs.LastPaymentTime)
	w.U8(rs.Bump)
	return w.Bytes()
}

func (rs *RentalState) AccountData() []byte {
	return withDiscriminator(RentalStateDiscriminator, rs.Marshal())
}

func (rs *RentalState) Relation() string { return RelationRentalStates }

func (rs *RentalState) Fields() projection.Row {
	return projection.Row{
		{Name: "version", Value: int64(rs.Version)},
		{Name: "contract", Value: projection.Key(rs.Contract)},
		{Name: "borrower", Value: projection.Key(rs.Borrower)},
		{Name: "borrower_profile", Value: projection.Key(rs.BorrowerProfile)},
		{Name: "borrower_token_account", Value: projection.Key(rs.BorrowerTokenAccount)},
		{Name: "fleet", Value: projection.Key(rs.Fleet)},
		{Name: "rate", Value: projection.U64(rs.Rate)},
		{Name: "start_time", Value: rs.StartTime},
		{Name: "end_time", Value: rs.EndTime},
		{Name: "last_payment_time", Value: rs.LastPaymentTime},
	}
}

func withDiscriminator(d account.Discriminator, body []byte) []byte {
	out := make([]byte, 0, len(d)+len(body))
	out = append(out, d[:]...)
	return append(out, body...)
}
