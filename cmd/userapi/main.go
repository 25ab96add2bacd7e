// Command userapi serves the user records API as an HTTP server or as an
// AWS Lambda function.
//
// @title        User Records API
// @version      1.0
// @description  Generate, query, archive and delete user records.
// @BasePath     /
package main

import (
	"os"

	"github.com/tbourn/go-user-records/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
