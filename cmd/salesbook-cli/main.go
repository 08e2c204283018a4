// Command salesbook-cli runs ledger operations against the SQLite store
// without the HTTP server: bulk imports, exports and reports.
package main

import (
	"errors"
	"fmt"
	"os"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

const (
	exitInvalid  = 2
	exitStore    = 3
	exitAnalysis = 4
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

func main() {
	a := newApp()
	root := newRootCmd(a)
	err := root.Execute()
	a.close()

	if err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		// cobra already printed the error
		os.Exit(1)
	}
}
