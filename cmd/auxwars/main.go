package main

import "github.com/auxwars/auxwars/internal/cli"

func main() {
	cli.Execute()
}
