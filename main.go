package main

import "github.com/fakeyudi/tabdock/cmd"

func main() {
	cmd.Execute()
}
