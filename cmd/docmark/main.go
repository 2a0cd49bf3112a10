package main

import (
	cmd "github.com/rohmanhakim/docmark/internal/cli"
)

func main() {
	cmd.Execute()
}
