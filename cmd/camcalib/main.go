package main

import (
	"os"
)

func main() {
	if err := NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
