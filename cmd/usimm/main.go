// Command usimm runs trace-driven cores against the DRAM controller and
// reports timing, power and command statistics.
package main

import (
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
