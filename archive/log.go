package archive

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
	logger = log.New(w, "archive: ", log.Lshortfile)
}

// SetDebugMode toggles verbose logging of per-class plan assembly to
// stderr.
func SetDebugMode(v bool) {
	printDebugInfo = v
	w := io.Discard
	if v {
		w = os.Stderr
	}
	logger = log.New(w, "archive: ", log.Lshortfile)
}
