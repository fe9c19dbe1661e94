package main

import "github.com/josephlewis42/turtlesh/cmd"

func main() {
	cmd.Execute()
}
