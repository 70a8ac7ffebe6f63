package main

import "github.com/isepctf/ctfportal/internal/cli"

func main() {
	cli.Execute()
}
