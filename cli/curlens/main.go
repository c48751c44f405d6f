package main

import (
	"os"

	curlenscmder "github.com/papercomputeco/curlens/cmd/curlens"
)

func main() {
	cmd := curlenscmder.NewCurlensCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
