package main

import "seek/cmd"

func main() {
	cmd.Execute()
}
