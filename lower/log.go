package lower

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
	logger = log.New(w, "lower: ", log.Lshortfile)
}

// SetDebugMode toggles verbose logging of each block's start location
// in the code buffer to stderr.
func SetDebugMode(v bool) {
	printDebugInfo = v
	w := io.Discard
	if v {
		w = os.Stderr
	}
	logger = log.New(w, "lower: ", log.Lshortfile)
}
