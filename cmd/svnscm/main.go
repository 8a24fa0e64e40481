// Command svnscm is the svnscm command-line interface.
package main

import "github.com/bolasblack/svnscm/internal/cli"

func main() {
	cli.Execute()
}
