package main

import "github.com/Norgate-AV/casewatch/cmd"

func main() {
	cmd.Execute()
}
