package main

import (
	"fmt"
	"os"

	"github.com/danmuck/trctl/internal/observability"
)

func main() {
	observability.InitLogger("trctl")
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "trctl: %v\n", err)
		os.Exit(1)
	}
}
