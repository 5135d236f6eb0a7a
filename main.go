package main

import "helpdesk/cmd"

func main() {
	cmd.Execute()
}
