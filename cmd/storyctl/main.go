// Storyctl inspects a Story of Us site folder without starting the server.
//
//	storyctl --root example list --city chengdu
//	storyctl --root example show chengdu-001
//	storyctl --root example check
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "storyctl: cannot load .env:", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
