package cull

import "fmt"

// assert panics when cond is false in builds tagged culldebug and compiles
// away otherwise.
func assert(cond bool, format string, args ...any) {
	if debugChecks && !cond {
		panic(fmt.Sprintf("cull: "+format, args...))
	}
}
