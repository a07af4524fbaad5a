package main

import "facematch/cmd"

func main() {
	cmd.Execute()
}
