package main

import "github.com/lepinkainen/brickmass/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
