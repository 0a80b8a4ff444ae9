package main

import (
	"github.com/sagestream/sagestream/cmd/sagestream/commands"

	// Register snapshot storage backends
	_ "github.com/PowerDNS/simpleblob/backends/fs"
	_ "github.com/PowerDNS/simpleblob/backends/memory"
	_ "github.com/PowerDNS/simpleblob/backends/s3"

	// Register projection store backends
	_ "github.com/sagestream/sagestream/projection/memory"
	_ "github.com/sagestream/sagestream/projection/sqlite"
)

// version is overridden during the build with the go linker
var version = "dev"

func main() {
	commands.SetVersion(version)
	commands.Execute()
}
