package main

import (
	"context"
	"os"
)

func main() {
	c := NewCLI(os.Stdin, os.Stdout, os.Stderr)
	os.Exit(c.Run(context.Background(), os.Args[1:]))
}
