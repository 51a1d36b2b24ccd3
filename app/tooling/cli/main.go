// This program forwards user intent to a blockchain node.
package main

import "github.com/ardanlabs/chainsync/app/tooling/cli/cmd"

func main() {
	cmd.Execute()
}
