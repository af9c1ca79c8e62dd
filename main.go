package main

import "eventmanager/cmd"

func main() {
	cmd.Execute()
}
