package main

import (
	"log"

	"github.com/iguard-io/mlpipe/cmd"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		log.Fatalf("cmd.Execute error: %v", err)
	}
}
