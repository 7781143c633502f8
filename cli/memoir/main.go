package main

import (
	"os"

	memoircmder "github.com/papercomputeco/memoir/cmd/memoir"
)

func main() {
	cmd := memoircmder.NewMemoirCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
