package main

import "github.com/markb/shopdash/cmd"

func main() {
	cmd.Execute()
}
