package main

import (
	"os"

	"github.com/dossierworks/dossier/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
