package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/golang/glog"
	"github.com/rohmanhakim/prompt-loader/internal/build"
	cmd "github.com/rohmanhakim/prompt-loader/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	defer glog.Flush()

	rootCmd := cmd.NewRootCmd()
	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(build.FullVersion())); err != nil {
		return 1
	}
	return 0
}
