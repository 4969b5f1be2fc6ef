package main

import "edusloth/cmd"

func main() {
	cmd.Execute()
}
