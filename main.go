package main

import "SuffixDB/cli"

func main() {
	cli.Execute()
}
