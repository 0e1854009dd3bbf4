package main

import (
	"os"

	"github.com/solatis/ukpostcode/cmd/ukpostcode/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
