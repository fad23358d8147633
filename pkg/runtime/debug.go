package runtime

import "fmt"

// DebugMode enables diagnostic logging of scheduling and lifecycle
// decisions. Off by default.
var DebugMode = false

func debugf(format string, args ...any) {
	if DebugMode {
		fmt.Printf("[veil] "+format+"\n", args...)
	}
}
