// Command tdworker runs registered tabsdata functions against request
// envelopes. The stock binary carries the built-in object-store
// bindings, configured through TD_STORE_* variables; function binaries
// built on the SDK register their functions and additional plugins the
// same way through the td package.
package main

import (
	"fmt"
	"os"

	td "github.com/tabsdata/td-go"
)

func main() {
	w := &td.Worker{Registry: td.NewRegistry()}
	if err := td.BindObjectStore(w); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(td.ExitCommandError)
	}
	cmd := td.NewRootCommand(w)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(td.ExitCode(err))
	}
}
