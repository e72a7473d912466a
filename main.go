package main

import "github.com/ravenmarkets/raven-engine/cmd"

func main() {
	cmd.Execute()
}
