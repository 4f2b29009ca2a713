// The main package for the forumvac executable.
package main

import (
	"github.com/forumvac/forumvac/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
