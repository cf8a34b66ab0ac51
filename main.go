package main

import "feed-processor/cmd"

func main() {
	cmd.Execute()
}
