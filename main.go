package main

import "github.com/lettera-hq/notifier/cmd"

func main() {
	cmd.Execute()
}
