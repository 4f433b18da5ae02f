package main

import "UsageForecaster/pkg/commands"

func main() {
	commands.Execute()
}
