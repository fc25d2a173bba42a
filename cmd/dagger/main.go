package main

import (
	"os"

	"github.com/offlinefirst/gameplay-dagger/internal/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
