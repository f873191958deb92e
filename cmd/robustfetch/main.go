package main

import "github.com/jzx17/robustfetch/internal/cli"

func main() {
	cli.Execute()
}
