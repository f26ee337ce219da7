// tagger finds dictionary phrases in text.
// Single binary: build a phrase dictionary from record files, then tag
// documents directly or through a resident daemon.
package main

import (
	"os"

	"github.com/corey/tagger/cmd/tagger/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
