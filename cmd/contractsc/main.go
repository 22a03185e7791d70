// contractsc generates compile-time contract checks for Go projects.
//
// It scans a module for contract directives in doc comments, rewrites the
// annotated declarations into checked shadow files, and emits an
// overlay.json consumed by `go build -overlay`.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
