package main

import "github.com/dhrubo326/imds/cmd"

func main() {
	cmd.Execute()
}
