// Package runtimec embeds the small C runtime that every generated program
// links against, so the compiler binary stays self-contained regardless of
// where it's invoked from.
package runtimec

import _ "embed"

//go:embed runtime.h
var Header []byte

//go:embed runtime.c
var Source []byte
