// Command mapsim replays map lifecycle and camera scenarios against an
// in-memory map and prints the calls the map receives.
package main

import (
	"os"

	"github.com/go-drift/maps/cmd/mapsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
