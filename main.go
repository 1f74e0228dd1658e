package main

import "github.com/maximbilan/medtr/cmd"

func main() {
	cmd.Execute()
}
