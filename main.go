package main

import "github.com/yourusername/editorkit/internal/cli"

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	cli.Execute(Version)
}
