package main

import "messagic/cmd/messagic/cmd"

func main() {
	cmd.Execute()
}
