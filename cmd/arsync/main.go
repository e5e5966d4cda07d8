// Command arsync drives the tracking to presentation engine from recorded
// host events and checks marker files.
package main

// Build metadata, set via ldflags.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

const appName = "arsync"

func main() {
	Execute()
}
