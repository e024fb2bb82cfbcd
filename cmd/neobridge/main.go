package main

import "github.com/mvp-joe/neobridge/internal/cli"

func main() {
	cli.Execute()
}
