// Command arkos runs the proxy relay and XP bot and its offline tooling.
package main

import (
	"fmt"
	"os"

	"github.com/PrimaryFunction/Arkos/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil && !cli.IsReported(err) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
