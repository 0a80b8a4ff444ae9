package snapshot

import (
	"bytes"
	"math"
	"testing"

	"github.com/CrowdStrike/csproto"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagestream/sagestream/account"
)

func key(b byte) account.Pubkey {
	var p account.Pubkey
	for i := range p {
		p[i] = b
	}
	return p
}

func makeTestMeta() Meta {
	const ts = 1678946171_001_002_003
	return Meta{
		Program:       "sage",
		ProgramID:     key(9).String(),
		Slot:          250_000_000,
		TimestampNano: ts,
		Hostname:      "host",
	}
}

func makeTestArchive(entries int) *Archive {
	a := NewArchive(makeTestMeta())
	d1 := account.AnchorDiscriminator("Fleet")
	d2 := account.AnchorDiscriminator("Star")
	for i := 0; i < entries; i++ {
		a.Add(d1, Entry{
			Pubkey: key(byte(i)),
			Account: account.RawAccount{
				Lamports:  uint64(i) * 1000,
				Data:      bytes.Repeat([]byte{byte(i)}, 100+i),
				Owner:     key(9),
				RentEpoch: math.MaxUint64,
			},
		})
	}
	a.Add(d2, Entry{
		Pubkey: key(200),
		Account: account.RawAccount{
			Lamports:   1,
			Data:       []byte{1, 2, 3},
			Owner:      key(9),
			Executable: true,
		},
	})
	return a
}

func roundtrip(t *testing.T, a *Archive) *Archive {
	t.Helper()
	data, stats, err := Encode(a)
	require.NoError(t, err)
	assert.Equal(t, a.Len(), stats.Entries)
	assert.Equal(t, int(stats.CompressedSize), len(data))
	got, err := Decode(data)
	require.NoError(t, err)
	return got
}

func TestArchive_roundtrip_empty(t *testing.T) {
	a := NewArchive(Meta{})
	got := roundtrip(t, a)
	assert.Equal(t, a, got)
	assert.Equal(t, 0, got.Len())
}

func TestArchive_roundtrip_single(t *testing.T) {
	a := NewArchive(makeTestMeta())
	a.Add(account.AnchorDiscriminator("Ship"), Entry{
		Pubkey: key(1),
		Account: account.RawAccount{
			Lamports: 42,
			Data:     []byte("ship data"),
			Owner:    key(2),
		},
	})
	assert.Equal(t, a, roundtrip(t, a))
}

func TestArchive_roundtrip_many(t *testing.T) {
	a := makeTestArchive(1000)
	assert.Equal(t, a, roundtrip(t, a))
}

func TestArchive_roundtrip_emptyData(t *testing.T) {
	a := NewArchive(makeTestMeta())
	d := account.AnchorDiscriminator("Star")
	a.Add(d, Entry{Pubkey: key(1), Account: account.RawAccount{Data: []byte{}}})
	got := roundtrip(t, a)
	assert.Equal(t, a, got)
	require.Len(t, got.Groups[d], 1)
	assert.NotNil(t, got.Groups[d][0].Account.Data)
	assert.Len(t, got.Groups[d][0].Account.Data, 0)
}

func TestArchive_roundtrip_unsetVersion(t *testing.T) {
	a := &Archive{Meta: makeTestMeta()}
	a.Add(account.AnchorDiscriminator("Star"), Entry{Pubkey: key(1)})
	require.NotNil(t, a.Groups[account.AnchorDiscriminator("Star")][0].Account.Data)

	got := roundtrip(t, a)
	assert.Equal(t, CurrentFormatVersion, got.FormatVersion)
	a.FormatVersion = CurrentFormatVersion
	assert.Equal(t, a, got)
}

func TestArchive_roundtrip_emptyGroup(t *testing.T) {
	a := NewArchive(makeTestMeta())
	a.Groups[account.AnchorDiscriminator("Star")] = []Entry{}
	assert.Equal(t, a, roundtrip(t, a))
}

func TestArchive_Marshal_deterministic(t *testing.T) {
	a := makeTestArchive(50)
	first := a.Marshal()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, a.Marshal())
	}
}

func TestArchive_Discriminators_sorted(t *testing.T) {
	a := makeTestArchive(1)
	discs := a.Discriminators()
	require.Len(t, discs, 2)
	assert.Equal(t, -1, bytes.Compare(discs[0][:], discs[1][:]))
}

func TestArchive_Unmarshal_mergesGroups(t *testing.T) {
	d := account.AnchorDiscriminator("Ship")
	a1 := NewArchive(Meta{})
	a1.Add(d, Entry{Pubkey: key(1), Account: account.RawAccount{Data: []byte{1}}})
	a2 := NewArchive(Meta{})
	a2.Add(d, Entry{Pubkey: key(2), Account: account.RawAccount{Data: []byte{2}}})

	// Concatenated protobuf messages merge, the repeated groups are appended
	pb := append(a1.Marshal(), a2.Marshal()...)
	var got Archive
	require.NoError(t, got.Unmarshal(pb))
	require.Len(t, got.Groups[d], 2)
	assert.Equal(t, key(1), got.Groups[d][0].Pubkey)
	assert.Equal(t, key(2), got.Groups[d][1].Pubkey)
}

func gzipped(t *testing.T, b []byte) []byte {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(b)
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func TestDecode_corrupt(t *testing.T) {
	valid, _, err := Encode(makeTestArchive(100))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not-gzip", []byte("this is not a gzip stream")},
		{"truncated-gzip", valid[:len(valid)/2]},
		{"garbage-protobuf", gzipped(t, []byte{0xff, 0xff, 0xff, 0xff})},
		{"no-version", gzipped(t, nil)},
		{"truncated-protobuf", gzipped(t, makeTestArchive(10).Marshal()[:200])},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data)
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, ErrCorruptArchive), "got %v", err)
		})
	}
}

func TestDecode_unsupportedVersion(t *testing.T) {
	a := makeTestArchive(1)
	a.FormatVersion = CurrentFormatVersion + 1
	data, _, err := Encode(a)
	require.NoError(t, err)

	got, err := Decode(data)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrUnsupportedVersion), "got %v", err)
	assert.False(t, errors.Is(err, ErrCorruptArchive))
}

func TestArchive_Unmarshal_invalid(t *testing.T) {
	t.Run("group-wiretype", func(t *testing.T) {
		var a Archive
		err := a.Unmarshal([]byte{0x08, 0x01, 0x18, 0x05})
		var wte WireTypeError
		require.True(t, errors.As(err, &wte), "got %v", err)
		assert.Equal(t, FieldArchiveGroup, wte.Tag)
		assert.Equal(t, csproto.WireTypeVarint, wte.Got)
		assert.Equal(t, csproto.WireTypeLengthDelimited, wte.Want)
	})
	t.Run("short-discriminator", func(t *testing.T) {
		var a Archive
		err := a.Unmarshal([]byte{0x08, 0x01, 0x1a, 0x05, 0x0a, 0x03, 1, 2, 3})
		assert.ErrorContains(t, err, "invalid discriminator length 3")
	})
	t.Run("no-discriminator", func(t *testing.T) {
		var a Archive
		err := a.Unmarshal([]byte{0x08, 0x01, 0x1a, 0x00})
		assert.ErrorContains(t, err, "group without discriminator")
	})
}

func TestMeta(t *testing.T) {
	var empty Meta
	assert.Equal(t, 0, len(empty.Marshal()))

	orig := makeTestMeta()
	pb := orig.Marshal()

	// Now load from PB and compare
	var loaded Meta
	err := loaded.Unmarshal(pb)
	assert.NoError(t, err)
	assert.Equal(t, orig, loaded)
}

func BenchmarkEncode_10k_entries(b *testing.B) {
	a := makeTestArchive(10_000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := Encode(a); err != nil {
			b.Fatal(err)
		}
	}
}
