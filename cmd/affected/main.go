// Command affected determines which workspace projects are truly affected
// by a set of source changes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// exitCodeError lets a subcommand request a specific process exit code
// without main needing to know the failure's shape.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func newExitError(code int, err error) error {
	return &exitCodeError{code: code, err: err}
}

func main() {
	root := &cobra.Command{
		Use:     "affected",
		Short:   "Determine which workspace projects are truly affected by a diff",
		Version: version,
	}
	root.AddCommand(analyzeCmd())
	root.AddCommand(versionCmd())
	root.SilenceUsage = true

	if err := root.Execute(); err != nil {
		var exitErr *exitCodeError
		if asExitCodeError(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "error:", exitErr.err)
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func asExitCodeError(err error, target **exitCodeError) bool {
	for err != nil {
		if e, ok := err.(*exitCodeError); ok {
			*target = e
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
