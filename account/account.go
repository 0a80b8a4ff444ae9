// Package account defines the ledger account types shared by the decoder,
// the ingestion loop and the snapshot codec.
package account

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const (
	PubkeySize        = 32
	DiscriminatorSize = 8
)

// Pubkey identifies an account or a program
type Pubkey [PubkeySize]byte

// ParsePubkey parses the base58 text form of a key
func ParsePubkey(s string) (Pubkey, error) {
	var p Pubkey
	b, err := base58.Decode(s)
	if err != nil {
		return p, errors.Wrapf(err, "pubkey %q", s)
	}
	if len(b) != PubkeySize {
		return p, errors.Errorf("pubkey %q: expected %d bytes, got %d", s, PubkeySize, len(b))
	}
	copy(p[:], b)
	return p, nil
}

// MustParsePubkey is ParsePubkey for constants. It panics on invalid input.
func MustParsePubkey(s string) Pubkey {
	p, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pubkey) UnmarshalText(text []byte) error {
	v, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Discriminator is the 8 byte type tag that prefixes the account data
type Discriminator [DiscriminatorSize]byte

// AnchorDiscriminator returns the discriminator Anchor programs use for the
// account type with the given name: sha256("account:<name>")[:8].
func AnchorDiscriminator(name string) Discriminator {
	var d Discriminator
	sum := sha256.Sum256([]byte("account:" + name))
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// DiscriminatorOf returns the discriminator of the account data. It returns
// false if the data is too short to carry one.
func DiscriminatorOf(data []byte) (Discriminator, bool) {
	var d Discriminator
	if len(data) < DiscriminatorSize {
		return d, false
	}
	copy(d[:], data)
	return d, true
}

func (d Discriminator) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDiscriminator parses the hex form returned by String
func ParseDiscriminator(s string) (Discriminator, error) {
	var d Discriminator
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, errors.Wrapf(err, "discriminator %q", s)
	}
	if len(b) != DiscriminatorSize {
		return d, errors.Errorf("discriminator %q: expected %d bytes", s, DiscriminatorSize)
	}
	copy(d[:], b)
	return d, nil
}
