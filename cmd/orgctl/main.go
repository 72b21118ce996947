// Command orgctl manages people, projects, entities and publications.
package main

import "github.com/mesh-intelligence/organizational/internal/cli"

func main() {
	cli.Execute()
}
