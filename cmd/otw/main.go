package main

import "github.com/OpenTraceLab/OpenTraceWire/cmd/otw/cmd"

func main() {
	cmd.Execute()
}
