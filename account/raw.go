package account

// RawAccount is an account as observed on the ledger. The Data is owned by
// whoever holds the RawAccount and is never modified by this module.
type RawAccount struct {
	Lamports   uint64
	Data       []byte
	Owner      Pubkey
	Executable bool
	RentEpoch  uint64
}

// Keyed couples a RawAccount with its address
type Keyed struct {
	Pubkey  Pubkey
	Account RawAccount
}

// Update is a single account change notification
type Update struct {
	Pubkey   Pubkey
	Owner    Pubkey
	Lamports uint64
	Data     []byte
	Slot     uint64
}

// Discriminator returns the type tag of the update data, if any.
func (u Update) Discriminator() (Discriminator, bool) {
	return DiscriminatorOf(u.Data)
}

// UpdateFromRaw turns a fetched or restored account into an Update as if it
// had been observed at the given slot.
func UpdateFromRaw(pubkey Pubkey, raw RawAccount, slot uint64) Update {
	return Update{
		Pubkey:   pubkey,
		Owner:    raw.Owner,
		Lamports: raw.Lamports,
		Data:     raw.Data,
		Slot:     slot,
	}
}

// Batch is the result of a bulk fetch, observed at the given context slot
type Batch struct {
	Slot     uint64
	Accounts []Keyed
}
