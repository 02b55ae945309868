package main

import "github.com/nethalo/dbshift/cmd"

func main() {
	cmd.Execute()
}
