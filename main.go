package main

import (
	"context"
	"os"

	"github.com/conneroisu/htmt/cmd"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
