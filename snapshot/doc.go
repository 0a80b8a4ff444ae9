/*
Package snapshot implements the snapshot archive: a gzip compressed protobuf
message holding raw accounts grouped by discriminator.

The serialisation code is written by hand on top of csproto, like this
.proto definition describes it:

	message Archive {
	    uint32 format_version = 1;
	    Meta meta = 2;
	    repeated Group groups = 3;
	}

	message Meta {
	    string program = 1;
	    string program_id = 2;
	    uint64 slot = 3;
	    fixed64 timestamp_nano = 4;
	    string hostname = 5;
	}

	message Group {
	    bytes discriminator = 1; // 8 bytes
	    repeated Entry entries = 2;
	}

	message Entry {
	    bytes pubkey = 1; // 32 bytes
	    fixed64 lamports = 2;
	    bytes data = 3; // always present, also when empty
	    bytes owner = 4; // 32 bytes
	    bool executable = 5;
	    uint64 rent_epoch = 6;
	}

Groups are written in ascending discriminator order and entries in the
order given, so that encoding is deterministic.

Account data is not copied when decoding, it points into the decompressed
buffer. Archives with a large number of accounts thus only keep a single
large allocation alive instead of one per account.
*/
package snapshot
