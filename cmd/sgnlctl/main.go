// Command sgnlctl is a diagnostic CLI for the configuration, authorization
// client, and policy adapters that back the sudo and PAM plugins. It is
// not itself part of either plugin's runtime path; it exists so an
// operator can validate configuration and exercise access decisions
// without invoking sudo or logging in.
package main

import (
	"fmt"
	"os"

	"github.com/sgnl-ai/sgnl-linux-host/cmd/sgnlctl/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
