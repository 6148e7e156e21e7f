package main

import "github.com/ogulcanaydogan/usagebot/internal/cli"

func main() {
	cli.Execute()
}
