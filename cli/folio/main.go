package main

import (
	"os"

	foliocmder "github.com/foliodocs/folio/cmd/folio"
)

func main() {
	cmd := foliocmder.NewFolioCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
