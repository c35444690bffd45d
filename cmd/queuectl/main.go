package main

import "github.com/sky93/queuectl/internal/cli"

func main() {
	cli.Execute()
}
