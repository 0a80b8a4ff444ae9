package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/CrowdStrike/csproto"
	"github.com/pkg/errors"

	"github.com/sagestream/sagestream/account"
)

// Protobuf field numbers
const (
	FieldArchiveFormatVersion = 1
	FieldArchiveMeta          = 2
	FieldArchiveGroup         = 3

	FieldGroupDiscriminator = 1
	FieldGroupEntry         = 2

	FieldEntryPubkey     = 1
	FieldEntryLamports   = 2
	FieldEntryData       = 3
	FieldEntryOwner      = 4
	FieldEntryExecutable = 5
	FieldEntryRentEpoch  = 6

	// TagSize0To15 is the number of bytes taken by a key with tag 1-15
	TagSize0To15 = 1
)

// NewArchive returns an empty Archive in the current format
func NewArchive(meta Meta) *Archive {
	return &Archive{
		FormatVersion: CurrentFormatVersion,
		Meta:          meta,
		Groups:        make(map[account.Discriminator][]Entry),
	}
}

// Archive is the root object of a snapshot
type Archive struct {
	FormatVersion uint32
	Meta          Meta
	Groups        map[account.Discriminator][]Entry
}

// Entry is a single account in an Archive
type Entry struct {
	Pubkey  account.Pubkey
	Account account.RawAccount
}

// Add appends an account to the group for the discriminator. Nil account
// data is stored as empty data, which is how it decodes.
func (a *Archive) Add(d account.Discriminator, e Entry) {
	if e.Account.Data == nil {
		e.Account.Data = []byte{}
	}
	if a.Groups == nil {
		a.Groups = make(map[account.Discriminator][]Entry)
	}
	a.Groups[d] = append(a.Groups[d], e)
}

// Discriminators returns the group keys in ascending order
func (a *Archive) Discriminators() []account.Discriminator {
	list := make([]account.Discriminator, 0, len(a.Groups))
	for d := range a.Groups {
		list = append(list, d)
	}
	slices.SortFunc(list, func(x, y account.Discriminator) int {
		return bytes.Compare(x[:], y[:])
	})
	return list
}

// Len returns the total number of entries
func (a *Archive) Len() int {
	n := 0
	for _, entries := range a.Groups {
		n += len(entries)
	}
	return n
}

// Marshal returns the protobuf encoding of the archive. A zero FormatVersion
// means unset and is written as CurrentFormatVersion, since no archive with
// version 0 can be read back.
func (a *Archive) Marshal() []byte {
	version := a.FormatVersion
	if version == 0 {
		version = CurrentFormatVersion
	}
	meta := a.Meta.Marshal()
	discs := a.Discriminators()

	// Determine the exact size first, so that we only allocate once
	size := TagSize0To15 + csproto.SizeOfVarint(uint64(version))
	if len(meta) > 0 {
		size += lengthDelimitedSize(len(meta))
	}
	groupSizes := make([]int, len(discs))
	for i, d := range discs {
		groupSizes[i] = groupSize(a.Groups[d])
		size += lengthDelimitedSize(groupSizes[i])
	}

	w := &encoder{b: make([]byte, size)}
	w.varint(FieldArchiveFormatVersion, uint64(version))
	if len(meta) > 0 {
		w.bytes(FieldArchiveMeta, meta)
	}
	for i, d := range discs {
		w.header(FieldArchiveGroup, groupSizes[i])
		w.bytes(FieldGroupDiscriminator, d[:])
		for _, e := range a.Groups[d] {
			w.header(FieldGroupEntry, entrySize(&e))
			w.entry(&e)
		}
	}
	if w.off != size {
		// Should never happen
		panic(fmt.Sprintf("snapshot: size mismatch: computed %d, wrote %d", size, w.off))
	}
	return w.b
}

// Unmarshal decodes the protobuf encoding of an archive. Account data refers
// to the given buffer.
func (a *Archive) Unmarshal(data []byte) error {
	a.Groups = make(map[account.Discriminator][]Entry)
	var hasVersion bool

	d := csproto.NewDecoder(data)
	d.SetMode(csproto.DecoderModeFast)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return err
		}
		switch tag {
		case FieldArchiveFormatVersion:
			a.FormatVersion, err = getUInt32(d, tag, wireType)
			if err != nil {
				return err
			}
			if a.FormatVersion > CurrentFormatVersion || a.FormatVersion < CompatFormatVersion {
				return errors.Wrapf(ErrUnsupportedVersion, "got %d, supported %d to %d",
					a.FormatVersion, CompatFormatVersion, CurrentFormatVersion)
			}
			hasVersion = true
		case FieldArchiveMeta:
			msg, err := getBytes(d, tag, wireType)
			if err != nil {
				return err
			}
			if err := a.Meta.Unmarshal(msg); err != nil {
				return errors.Wrap(err, "meta")
			}
		case FieldArchiveGroup:
			msg, err := getBytes(d, tag, wireType)
			if err != nil {
				return err
			}
			if err := a.unmarshalGroup(msg); err != nil {
				return errors.Wrap(err, "group")
			}
		default:
			if _, err := d.Skip(tag, wireType); err != nil {
				return err
			}
		}
	}
	if !hasVersion {
		return errors.New("no format version")
	}
	return nil
}

func (a *Archive) unmarshalGroup(data []byte) error {
	var disc account.Discriminator
	var hasDisc bool
	var entries []Entry
	d := csproto.NewDecoder(data)
	d.SetMode(csproto.DecoderModeFast)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return err
		}
		switch tag {
		case FieldGroupDiscriminator:
			disc, err = getDiscriminator(d, tag, wireType)
			if err != nil {
				return err
			}
			hasDisc = true
		case FieldGroupEntry:
			msg, err := getBytes(d, tag, wireType)
			if err != nil {
				return err
			}
			e, err := unmarshalEntry(msg)
			if err != nil {
				return errors.Wrapf(err, "entry %d", len(entries))
			}
			entries = append(entries, e)
		default:
			if _, err := d.Skip(tag, wireType); err != nil {
				return err
			}
		}
	}
	if !hasDisc {
		return errors.New("group without discriminator")
	}
	if entries == nil {
		entries = []Entry{}
	}
	// A discriminator can appear in more than one group
	a.Groups[disc] = append(a.Groups[disc], entries...)
	return nil
}

func unmarshalEntry(data []byte) (Entry, error) {
	var e Entry
	var hasPubkey bool
	e.Account.Data = []byte{}

	d := csproto.NewDecoder(data)
	d.SetMode(csproto.DecoderModeFast)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return e, err
		}
		switch tag {
		case FieldEntryPubkey:
			e.Pubkey, err = getPubkey(d, tag, wireType)
			if err != nil {
				return e, err
			}
			hasPubkey = true
		case FieldEntryOwner:
			e.Account.Owner, err = getPubkey(d, tag, wireType)
			if err != nil {
				return e, err
			}
		case FieldEntryLamports:
			e.Account.Lamports, err = getFixed64(d, tag, wireType)
			if err != nil {
				return e, err
			}
		case FieldEntryData:
			b, err := getBytes(d, tag, wireType)
			if err != nil {
				return e, err
			}
			if len(b) > 0 {
				e.Account.Data = b
			}
		case FieldEntryExecutable:
			e.Account.Executable, err = getBool(d, tag, wireType)
			if err != nil {
				return e, err
			}
		case FieldEntryRentEpoch:
			e.Account.RentEpoch, err = getUInt64(d, tag, wireType)
			if err != nil {
				return e, err
			}
		default:
			if _, err := d.Skip(tag, wireType); err != nil {
				return e, err
			}
		}
	}
	if !hasPubkey {
		return e, errors.New("entry without pubkey")
	}
	return e, nil
}

func lengthDelimitedSize(n int) int {
	return TagSize0To15 + csproto.SizeOfVarint(uint64(n)) + n
}

func groupSize(entries []Entry) int {
	n := lengthDelimitedSize(account.DiscriminatorSize)
	for i := range entries {
		n += lengthDelimitedSize(entrySize(&entries[i]))
	}
	return n
}

func entrySize(e *Entry) int {
	n := 2 * lengthDelimitedSize(account.PubkeySize) // pubkey and owner
	n += lengthDelimitedSize(len(e.Account.Data))   // always written
	if e.Account.Lamports > 0 {
		n += TagSize0To15 + 8
	}
	if e.Account.Executable {
		n += TagSize0To15 + 1
	}
	if e.Account.RentEpoch > 0 {
		n += TagSize0To15 + csproto.SizeOfVarint(e.Account.RentEpoch)
	}
	return n
}

// encoder writes into a buffer of precomputed size
type encoder struct {
	b   []byte
	off int
}

func (w *encoder) header(tag int, size int) {
	w.off += csproto.EncodeTag(w.b[w.off:], tag, csproto.WireTypeLengthDelimited)
	w.off += csproto.EncodeVarint(w.b[w.off:], uint64(size))
}

func (w *encoder) bytes(tag int, b []byte) {
	w.header(tag, len(b))
	w.off += copy(w.b[w.off:], b)
}

func (w *encoder) varint(tag int, v uint64) {
	w.off += csproto.EncodeTag(w.b[w.off:], tag, csproto.WireTypeVarint)
	w.off += csproto.EncodeVarint(w.b[w.off:], v)
}

func (w *encoder) fixed64(tag int, v uint64) {
	w.off += csproto.EncodeTag(w.b[w.off:], tag, csproto.WireTypeFixed64)
	binary.LittleEndian.PutUint64(w.b[w.off:w.off+8], v)
	w.off += 8
}

func (w *encoder) entry(e *Entry) {
	w.bytes(FieldEntryPubkey, e.Pubkey[:])
	if e.Account.Lamports > 0 {
		w.fixed64(FieldEntryLamports, e.Account.Lamports)
	}
	w.bytes(FieldEntryData, e.Account.Data)
	w.bytes(FieldEntryOwner, e.Account.Owner[:])
	if e.Account.Executable {
		w.varint(FieldEntryExecutable, 1)
	}
	if e.Account.RentEpoch > 0 {
		w.varint(FieldEntryRentEpoch, e.Account.RentEpoch)
	}
}
