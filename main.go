package main

import "github.com/toddyivon/GT7-Telemetry-Pro/cmd"

func main() {
	cmd.Execute()
}
