package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"bullion-bell/internal/cli"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	root := cli.NewRootCmd(buildVersion())
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func buildVersion() string {
	v := version
	if commit != "" {
		v += " (" + commit + ")"
	}
	if date != "" {
		v += " " + date
	}
	return v
}
