package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"quiltrender/internal/services"
)

// exitCancelled is the conventional status of a process stopped by SIGINT.
const exitCancelled = 130

// errCancelled reports a job that stopped before finishing. The outcome
// message has already been printed.
var errCancelled = errors.New("render cancelled")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return exitCode(cmd.Execute(), stderr)
}

func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errCancelled):
		return exitCancelled
	default:
		fmt.Fprintln(stderr, "Error:", err)
		return services.ExitCode(err)
	}
}
