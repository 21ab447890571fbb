// Command recruitctl runs administrator tasks against the configured stores:
// batch recompute, dry-run scoring and inbox watching.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
