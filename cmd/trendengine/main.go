package main

import "github.com/rustyeddy/trendengine/internal/cli"

func main() {
	cli.Execute()
}
