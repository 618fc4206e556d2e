package main

import "github.com/ppiankov/glyphgate/internal/cli"

func main() {
	cli.Execute()
}
