package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseName(t *testing.T) {
	ts := time.Date(2022, 1, 2, 3, 4, 5, 12345678, time.UTC)
	tests := []struct {
		testName string
		name     string
		want     NameInfo
		wantErr  bool
	}{
		{
			"roundtrip",
			Name("sage", ts),
			NameInfo{
				FullName:        "sage__20220102-030405-012345678.bin.gz",
				Extension:       "bin.gz",
				Program:         "sage",
				TimestampString: "20220102-030405-012345678",
				Timestamp:       ts,
			},
			false,
		},
		{
			"underscores-in-program",
			"fleet__rentals__20220102-030405-012345678.bin.gz",
			NameInfo{
				FullName:        "fleet__rentals__20220102-030405-012345678.bin.gz",
				Extension:       "bin.gz",
				Program:         "fleet__rentals",
				TimestampString: "20220102-030405-012345678",
				Timestamp:       ts,
			},
			false,
		},
		{
			"invalid",
			"invalid",
			NameInfo{},
			true,
		},
		{
			"invalid-ext",
			"sage__20220102-030405-012345678.pb.gz",
			NameInfo{},
			true,
		},
		{
			"too-few-fields",
			"20220102-030405-012345678.bin.gz",
			NameInfo{},
			true,
		},
		{
			"no-program",
			"__20220102-030405-012345678.bin.gz",
			NameInfo{},
			true,
		},
		{
			"invalid-ts",
			"sage__20220102-030405-012.bin.gz",
			NameInfo{},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			got, err := ParseName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseName() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestName_sortsByTime(t *testing.T) {
	a := Name("sage", time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC))
	b := Name("sage", time.Date(2022, 1, 2, 3, 4, 5, 1, time.UTC))
	c := Name("sage", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}
