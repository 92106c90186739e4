package main

import "github.com/devicelab-dev/droidscan/pkg/cli"

func main() {
	cli.Execute()
}
