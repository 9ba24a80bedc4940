package main

import "github.com/OpenTraceLab/kicadsync/cmd/kicadsync/cmd"

func main() {
	cmd.Execute()
}
