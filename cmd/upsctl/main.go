package main

import (
	"github.com/MrEll3n/ups-server/internal/cli"
)

func main() {
	cli.Execute()
}
