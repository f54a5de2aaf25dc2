package main

import (
	"github.com/platkey/platkey/cli"
)

func main() {
	cli.Execute()
}
