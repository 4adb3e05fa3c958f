package main

import "github.com/kartrace/kartrace-go/cmd"

func main() {
	cmd.Execute()
}
