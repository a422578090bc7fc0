package main

import (
	"fmt"
	"os"

	memorydcmder "github.com/Valino123/trip-memory/cmd/memoryd"
	"github.com/Valino123/trip-memory/pkg/cliexit"
)

func main() {
	cmd := memorydcmder.NewMemorydCmd()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cliexit.Code(err))
	}
}
