package snapshot

import (
	"context"
	"slices"
	"time"

	"github.com/PowerDNS/simpleblob"
	"github.com/pkg/errors"
)

// Save encodes the archive and stores it under its Name, which is derived
// from Meta.Program and Meta.TimestampNano.
func Save(ctx context.Context, st simpleblob.Interface, a *Archive) (string, DumpDataStats, error) {
	if a.Meta.Program == "" {
		return "", DumpDataStats{}, errors.New("archive meta has no program name")
	}
	name := Name(a.Meta.Program, time.Unix(0, int64(a.Meta.TimestampNano)))
	data, stats, err := Encode(a)
	if err != nil {
		return "", stats, errors.Wrap(err, "encode")
	}
	if err := st.Store(ctx, name, data); err != nil {
		metricSnapshotsStoreFailed.WithLabelValues(a.Meta.Program).Inc()
		return "", stats, errors.Wrapf(err, "store %s", name)
	}
	metricSnapshotsStored.WithLabelValues(a.Meta.Program).Inc()
	metricSnapshotsLastSize.WithLabelValues(a.Meta.Program).Set(float64(len(data)))
	metricSnapshotsLastTimestamp.WithLabelValues(a.Meta.Program).Set(
		float64(a.Meta.TimestampNano) / 1e9)
	return name, stats, nil
}

// Load loads and decodes the named archive
func Load(ctx context.Context, st simpleblob.Interface, name string) (*Archive, error) {
	data, err := st.Load(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", name)
	}
	a, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", name)
	}
	metricSnapshotsLoaded.WithLabelValues(a.Meta.Program).Inc()
	return a, nil
}

// List returns the archives of a program, oldest first.
// Blobs with names that do not parse are ignored.
func List(ctx context.Context, st simpleblob.Interface, program string) ([]NameInfo, error) {
	ls, err := st.List(ctx, Prefix(program))
	if err != nil {
		return nil, err
	}
	var list []NameInfo
	for _, name := range ls.Names() {
		ni, err := ParseName(name)
		if err != nil || ni.Program != program {
			continue
		}
		list = append(list, ni)
	}
	slices.SortFunc(list, func(a, b NameInfo) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return list, nil
}

// Latest returns the newest archive of a program, if any
func Latest(ctx context.Context, st simpleblob.Interface, program string) (NameInfo, bool, error) {
	list, err := List(ctx, st, program)
	if err != nil || len(list) == 0 {
		return NameInfo{}, false, err
	}
	return list[len(list)-1], true, nil
}
