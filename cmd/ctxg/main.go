package main

import "github.com/ogulcanaydogan/context-guardian/internal/cli"

func main() {
	cli.Execute()
}
