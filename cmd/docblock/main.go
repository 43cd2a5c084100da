package main

import "github.com/mvp-joe/docblock/internal/cli"

func main() {
	cli.Execute()
}
