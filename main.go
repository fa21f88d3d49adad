package main

import "github.com/antibyte/calcvault/cmd"

func main() {
	cmd.Execute()
}
