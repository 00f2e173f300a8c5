// The main package for the cfb-rookie-crawler executable.
package main

import (
	"github.com/JakeFAU/cfb-rookie-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
