package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vidshare/backend/internal/app"
)

const usage = "usage: vidshare serve | migrate [up|status] | seed <name>"

func main() {
	if err := app.Run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "vidshare: %v\n%s\n", err, usage)
		os.Exit(1)
	}
}
