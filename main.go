package main

import "github.com/Gojibodev/keklauncher/internal/cli"

func main() {
	cli.Execute()
}
