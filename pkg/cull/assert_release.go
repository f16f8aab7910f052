//go:build !culldebug

package cull

const debugChecks = false
