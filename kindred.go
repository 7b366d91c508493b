package main

import cli "github.com/kindredloop/kindred/cmd/kindred"

func main() {
	cli.Execute()
}
