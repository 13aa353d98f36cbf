package main

import (
	"os"

	"github.com/simaogato/timedeposit-backend/cmd/depositctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
