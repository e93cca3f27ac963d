package main

import "library-ledger/cli"

func main() {
	cli.Execute()
}
