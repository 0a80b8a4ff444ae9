package snapshot

import (
	"bytes"
	"io"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Decode loads archive file contents that are gzipped protobufs.
// It never returns a partially decoded archive.
func Decode(data []byte) (*Archive, error) {
	// Uncompress
	g, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &CorruptError{Stage: "gzip", Err: err}
	}
	pbData, err := io.ReadAll(g)
	if err != nil {
		return nil, &CorruptError{Stage: "gzip", Err: err}
	}
	if err := g.Close(); err != nil {
		return nil, &CorruptError{Stage: "gzip", Err: err}
	}

	// Load protobuf
	msg := new(Archive)
	if err := msg.Unmarshal(pbData); err != nil {
		if errors.Is(err, ErrUnsupportedVersion) {
			return nil, err
		}
		return nil, &CorruptError{Stage: "protobuf", Err: err}
	}
	return msg, nil
}

// Encode returns a compressed Archive
func Encode(msg *Archive) ([]byte, DumpDataStats, error) {
	var stat DumpDataStats
	t0 := time.Now()

	pb := msg.Marshal()
	stat.ProtobufSize = datasize.ByteSize(len(pb))
	stat.Entries = msg.Len()

	// Typical account data compresses well, start with a quarter
	out := bytes.NewBuffer(make([]byte, 0, len(pb)/4+512))
	gw, err := gzip.NewWriterLevel(out, gzip.BestSpeed)
	if err != nil {
		return nil, stat, err
	}
	if _, err := gw.Write(pb); err != nil {
		return nil, stat, err
	}
	if err = gw.Close(); err != nil {
		return nil, stat, err
	}
	stat.TCompressed = time.Since(t0)

	compressedData := out.Bytes()
	stat.CompressedSize = datasize.ByteSize(len(compressedData))
	return compressedData, stat, nil
}

type DumpDataStats struct {
	TCompressed    time.Duration     // time it took to marshal and compress
	ProtobufSize   datasize.ByteSize // uncompressed protobuf size
	CompressedSize datasize.ByteSize // compressed size
	Entries        int
}
