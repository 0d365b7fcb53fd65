package main

import "github.com/chupakbra/pxve-members/cli"

func main() {
	cli.Execute()
}
