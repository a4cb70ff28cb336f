package main

import "soundhub/cmd"

func main() {
	cmd.Execute()
}
