// Package main provides the one-shot single-tenant to multi-tenant migration
// for bracketspace deployments.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/louisbranch/bracketspace/internal/platform/config"
	"github.com/louisbranch/bracketspace/internal/tools/saasmigrate"
)

func main() {
	fs := flag.NewFlagSet("saas-migrate", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, saasmigrate.Usage)
	}

	cfg, err := saasmigrate.ParseConfig(fs, os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		config.Exitf("Error: %v", err)
	}

	if err := saasmigrate.Run(cfg, os.Stdout, os.Stderr); err != nil {
		config.Exitf("Error: %v", err)
	}
}
