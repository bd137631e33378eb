package main

import "couplecoach/client/memory-cli/cmd"

func main() {
	cmd.Execute()
}
