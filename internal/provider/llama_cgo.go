//go:build llama

package provider

// Link against libllama from ./bin and embed an $ORIGIN rpath so the binary
// finds the shared libraries next to itself.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"
