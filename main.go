package main

import "docsync/cmd"

func main() {
	cmd.Execute()
}
