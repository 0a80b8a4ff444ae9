package snapshot

import (
	"fmt"
	"strings"
	"time"
)

const (
	timeFormat = "20060102-150405.000000000" // but need to s/./-/
	dotIndex   = 15                          // position of the '.'

	// Extension of archive files
	Extension = "bin.gz"
)

func Timestamp(ts time.Time) string {
	fileTimestamp := strings.Replace(
		ts.UTC().Format(timeFormat),
		".", "-", 1)
	return fileTimestamp
}

func TimestampFromNano(tsNano uint64) string {
	ts := time.Unix(0, int64(tsNano))
	return Timestamp(ts)
}

// Name returns the archive file name for a program, like
// "sage__20240102-030405-012345678.bin.gz".
// Timestamps sort lexically, so the newest archive sorts last.
func Name(program string, ts time.Time) string {
	return fmt.Sprintf("%s__%s.%s", program, Timestamp(ts), Extension)
}

// Prefix returns the name prefix of all archives of a program
func Prefix(program string) string {
	return program + "__"
}

func ParseName(name string) (NameInfo, error) {
	var ni, empty NameInfo
	basename, ext, found := strings.Cut(name, ".")
	if !found {
		return empty, fmt.Errorf("invalid name: no dot: %s", name)
	}
	if ext != Extension {
		return empty, fmt.Errorf("unexpected extension: %s", name)
	}
	ni.FullName = name
	ni.Extension = ext
	i := strings.LastIndex(basename, "__")
	if i < 1 {
		return empty, fmt.Errorf("not enough name parts: %s", name)
	}
	ni.Program = basename[:i]
	ni.TimestampString = basename[i+2:]
	tss := ni.TimestampString
	if len(tss) != len(timeFormat) || tss[dotIndex] != '-' {
		return empty, fmt.Errorf("invalid timestamp format: %s in %s", tss, name)
	}
	tss = tss[:dotIndex] + "." + tss[dotIndex+1:] // replace second '-' with '.' for parsing
	ts, err := time.Parse(timeFormat, tss)        // returns time in UTC
	if err != nil {
		return empty, fmt.Errorf("timestamp parse error: %s", err)
	}
	ni.Timestamp = ts
	return ni, nil
}

type NameInfo struct {
	FullName        string
	Extension       string // "bin.gz"
	Program         string
	TimestampString string
	Timestamp       time.Time
}
