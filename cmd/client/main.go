package main

import "parlsync/cmd/client/cmd"

func main() {
	cmd.Execute()
}
