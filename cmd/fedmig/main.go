package main

import (
	"os"

	"github.com/rabbitops/fedmig/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
