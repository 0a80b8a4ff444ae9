package projection

import (
	"github.com/sagestream/sagestream/account"
)

// RelationRawAccounts holds every received account as-is
const RelationRawAccounts = "raw_accounts"

// RawAccount is the raw_accounts row for an account update
type RawAccount struct {
	Update account.Update
}

func (RawAccount) Relation() string { return RelationRawAccounts }

func (r RawAccount) Fields() Row {
	var disc any
	if d, ok := r.Update.Discriminator(); ok {
		disc = d.String()
	}
	data := r.Update.Data
	if data == nil {
		data = []byte{}
	}
	return Row{
		{Name: "owner", Value: Key(r.Update.Owner)},
		{Name: "lamports", Value: U64(r.Update.Lamports)},
		{Name: "discriminator", Value: disc},
		{Name: "data", Value: data},
		{Name: "space", Value: int64(len(r.Update.Data))},
		{Name: "slot", Value: U64(r.Update.Slot)},
	}
}
