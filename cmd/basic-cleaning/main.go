package main

import (
	"os"

	"github.com/jm8gw/build-ml-pipeline-for-short-term-rental-prices/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		f := &cli.OutputFormatter{Format: "text", Writer: os.Stderr}
		_ = f.Error(cli.ErrorCode(err), err.Error(), nil)
	}
	os.Exit(cli.GetExitCode(err))
}
