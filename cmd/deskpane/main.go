package main

import "github.com/bryanchriswhite/deskpane/cmd/deskpane/commands"

func main() {
	commands.Execute()
}
