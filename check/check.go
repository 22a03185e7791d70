// Package check is the small runtime imported by code generated from
// contract directives. It carries the debug-build switch and the test-mode
// probe; the generated code itself contains the condition checks and
// panics.
package check

import "testing"

// Testing reports whether the program is a test binary. Test-mode contracts
// compile to checks guarded by this probe, so they cost a single branch in
// production binaries.
func Testing() bool {
	return testing.Testing()
}
