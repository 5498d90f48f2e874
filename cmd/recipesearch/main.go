// Command recipesearch runs recipe queries against a recipe database from the
// command line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		os.Exit(1)
	}
}
