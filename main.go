package main

import (
	"os"

	"github.com/rpgate/rpgate/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
