// sasswatch compiles a tree of SCSS sources into CSS and keeps it current.
package main

import (
	"os"

	"github.com/hupe1980/sasswatch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
