package main

import "crashpipe/cmd/pipeline/cmd"

func main() {
	cmd.Execute()
}
