package snapshot

import (
	"fmt"

	"github.com/CrowdStrike/csproto"

	"github.com/sagestream/sagestream/account"
)

// WireTypeError is returned when a known field carries the wrong wire type
type WireTypeError struct {
	Tag  int
	Got  csproto.WireType
	Want csproto.WireType
}

func (e WireTypeError) Error() string {
	return fmt.Sprintf("field %d: wire type %v, want %v", e.Tag, e.Got, e.Want)
}

func expectWT(tag int, got, want csproto.WireType) error {
	if got != want {
		return WireTypeError{Tag: tag, Got: got, Want: want}
	}
	return nil
}

func getUInt32(d *csproto.Decoder, tag int, wireType csproto.WireType) (uint32, error) {
	if err := expectWT(tag, wireType, csproto.WireTypeVarint); err != nil {
		return 0, err
	}
	return d.DecodeUInt32()
}

func getUInt64(d *csproto.Decoder, tag int, wireType csproto.WireType) (uint64, error) {
	if err := expectWT(tag, wireType, csproto.WireTypeVarint); err != nil {
		return 0, err
	}
	return d.DecodeUInt64()
}

func getFixed64(d *csproto.Decoder, tag int, wireType csproto.WireType) (uint64, error) {
	if err := expectWT(tag, wireType, csproto.WireTypeFixed64); err != nil {
		return 0, err
	}
	return d.DecodeFixed64()
}

func getBool(d *csproto.Decoder, tag int, wireType csproto.WireType) (bool, error) {
	if err := expectWT(tag, wireType, csproto.WireTypeVarint); err != nil {
		return false, err
	}
	return d.DecodeBool()
}

// getBytes returns a slice of the decoder buffer, capped so that appends
// never write into the following fields.
func getBytes(d *csproto.Decoder, tag int, wireType csproto.WireType) ([]byte, error) {
	if err := expectWT(tag, wireType, csproto.WireTypeLengthDelimited); err != nil {
		return nil, err
	}
	val, err := d.DecodeBytes()
	if err != nil {
		return nil, err
	}
	n := len(val)
	return val[0:n:n], nil
}

func getString(d *csproto.Decoder, tag int, wireType csproto.WireType) (string, error) {
	if err := expectWT(tag, wireType, csproto.WireTypeLengthDelimited); err != nil {
		return "", err
	}
	return d.DecodeString()
}

// getPubkey reads a length-delimited field that must hold exactly one key
func getPubkey(d *csproto.Decoder, tag int, wireType csproto.WireType) (account.Pubkey, error) {
	var p account.Pubkey
	b, err := getBytes(d, tag, wireType)
	if err != nil {
		return p, err
	}
	if len(b) != account.PubkeySize {
		return p, fmt.Errorf("field %d: invalid key length %d", tag, len(b))
	}
	copy(p[:], b)
	return p, nil
}

func getDiscriminator(d *csproto.Decoder, tag int, wireType csproto.WireType) (account.Discriminator, error) {
	var disc account.Discriminator
	b, err := getBytes(d, tag, wireType)
	if err != nil {
		return disc, err
	}
	if len(b) != account.DiscriminatorSize {
		return disc, fmt.Errorf("field %d: invalid discriminator length %d", tag, len(b))
	}
	copy(disc[:], b)
	return disc, nil
}
