package snapshot

const (
	// CurrentFormatVersion is the current archive format we write.
	// Version 1 is the first version of our archives.
	CurrentFormatVersion uint32 = 1

	// CompatFormatVersion is the oldest archive version we can read.
	CompatFormatVersion uint32 = 1
)
