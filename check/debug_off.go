//go:build !contractsdebug

package check

const Debug = false
