package main

import (
	"os"

	"github.com/pharmview/pharmview/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
