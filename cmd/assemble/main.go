// Package main provides the assembler command.
//
// Usage: assemble <file_in> <file_out>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/a64sim/asm"
	"github.com/sarchlab/a64sim/loader"
)

var verbose = flag.Bool("v", false, "Log assembler passes")

func main() {
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "Usage: assemble [options] <file_in> <file_out>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), flag.Arg(1)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(inPath, outPath string) error {
	source, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	words, err := asm.NewAssembler(asm.WithLogger(logger)).Assemble(string(source))
	if err != nil {
		return err
	}

	return loader.WriteImage(outPath, words)
}
