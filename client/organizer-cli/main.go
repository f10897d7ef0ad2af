package main

import "file-organizer/client/organizer-cli/cmd"

func main() {
	cmd.Execute()
}
