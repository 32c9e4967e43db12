package main

import "serialtool/cmd"

func main() {
	cmd.Execute()
}
