package main

import (
	"os"
)

func main() {
	if err := newRootCmd(appOptions{}).Execute(); err != nil {
		os.Exit(1)
	}
}
