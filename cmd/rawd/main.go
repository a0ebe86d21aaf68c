//go:build unix

package main

import (
	"log"
	"os"

	"github.com/Trinoooo/rawd/relay/cli"
)

func main() {
	wrapper := cli.NewWrapper()
	if err := wrapper.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
