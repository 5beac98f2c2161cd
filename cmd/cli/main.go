package main

import "mangawatch/cmd/cli/command"

func main() {
	command.Execute()
}
