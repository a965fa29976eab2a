package main

import "github.com/example/mayabook/cmd"

func main() {
	cmd.Execute()
}
