package main

import (
	"github.com/portside/portside/internal/cli"
	"github.com/portside/portside/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
