package main

import "github.com/voipcheck/voipcheck/cmd"

func main() {
	cmd.Execute()
}
