package main

import "github.com/spektr-org/opsboard/cli"

func main() {
	cli.Execute()
}
