package classfile

import (
	"io"
	"log"
	"os"
)

var printDebugInfo = false

var logger *log.Logger

func init() {
	w := io.Discard
	if printDebugInfo {
		w = os.Stderr
	}
	logger = log.New(w, "classfile: ", log.Lshortfile)
}

// SetDebugMode toggles verbose logging of constant-pool interning and
// branch-target patching to stderr.
func SetDebugMode(v bool) {
	printDebugInfo = v
	w := io.Discard
	if v {
		w = os.Stderr
	}
	logger = log.New(w, "classfile: ", log.Lshortfile)
}
