// noisyavg - Noisy Average Release Tool
//
// noisyavg releases Laplace-noised averages of a dataset's ages together with
// the averages of its neighboring datasets, and checks and charts the results.
package main

import (
	"os"

	"github.com/ccollicutt/noisyavg/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
