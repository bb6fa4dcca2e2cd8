package main

import (
	"github.com/ExpertVagabond/grape-art/internal/cli"
)

func main() {
	cli.Execute()
}
