package snapshot

import (
	"encoding/binary"

	"github.com/CrowdStrike/csproto"
)

// Protobuf field numbers
const (
	FieldMetaProgram       = 1
	FieldMetaProgramID     = 2
	FieldMetaSlot          = 3
	FieldMetaTimestampNano = 4
	FieldMetaHostname      = 5
)

// Meta describes where and when an archive was made
type Meta struct {
	Program       string // configured program name
	ProgramID     string // base58 program address
	Slot          uint64 // lowest context slot of the fetches
	TimestampNano uint64
	Hostname      string
}

func (m *Meta) Marshal() []byte {
	stringFields := []struct {
		tag int
		val string
	}{
		{FieldMetaProgram, m.Program},
		{FieldMetaProgramID, m.ProgramID},
		{FieldMetaHostname, m.Hostname},
	}

	// Make a safe estimate of the buffer size needed, not accurate.
	var bufSizeNeeded int
	for _, sf := range stringFields {
		bufSizeNeeded += len(sf.val) + 20
	}
	bufSizeNeeded += 100 // generous enough for the numeric fields
	b := make([]byte, bufSizeNeeded)
	offset := 0

	for _, sf := range stringFields {
		if len(sf.val) > 0 {
			offset += csproto.EncodeTag(b[offset:], sf.tag, csproto.WireTypeLengthDelimited)
			offset += csproto.EncodeVarint(b[offset:], uint64(len(sf.val)))
			offset += copy(b[offset:], sf.val)
		}
	}
	if m.Slot > 0 {
		offset += csproto.EncodeTag(b[offset:], FieldMetaSlot, csproto.WireTypeVarint)
		offset += csproto.EncodeVarint(b[offset:], m.Slot)
	}
	if m.TimestampNano > 0 {
		offset += csproto.EncodeTag(b[offset:], FieldMetaTimestampNano, csproto.WireTypeFixed64)
		binary.LittleEndian.PutUint64(b[offset:offset+8], m.TimestampNano)
		offset += 8
	}

	return b[:offset]
}

func (m *Meta) Unmarshal(data []byte) error {
	d := csproto.NewDecoder(data)
	d.SetMode(csproto.DecoderModeFast)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return err
		}
		switch tag {
		case FieldMetaProgram:
			m.Program, err = getString(d, tag, wireType)
			if err != nil {
				return err
			}
		case FieldMetaProgramID:
			m.ProgramID, err = getString(d, tag, wireType)
			if err != nil {
				return err
			}
		case FieldMetaSlot:
			m.Slot, err = getUInt64(d, tag, wireType)
			if err != nil {
				return err
			}
		case FieldMetaTimestampNano:
			m.TimestampNano, err = getFixed64(d, tag, wireType)
			if err != nil {
				return err
			}
		case FieldMetaHostname:
			m.Hostname, err = getString(d, tag, wireType)
			if err != nil {
				return err
			}
		default:
			if _, err := d.Skip(tag, wireType); err != nil {
				return err
			}
		}
	}
	return nil
}
