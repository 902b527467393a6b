package main

import "shared-space-client/cmd"

func main() {
	cmd.Run()
}
