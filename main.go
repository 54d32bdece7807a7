package main

import "github.com/Tiliavir/fieldtime/cmd"

func main() {
	cmd.Execute()
}
