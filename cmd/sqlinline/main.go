// Package main provides the sqlinline command.
package main

import (
	"context"
	"os"

	"github.com/leapstack-labs/sqlinline/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
