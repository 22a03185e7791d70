//go:build contractsdebug

package check

// Debug gates debug-mode contracts. Build with -tags contractsdebug to
// enable them; the constant lets the compiler delete the checks entirely
// in regular builds.
const Debug = true
