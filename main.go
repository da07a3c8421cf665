package main

import "github.com/killallgit/sttclient/cmd"

func main() {
	cmd.Execute()
}
