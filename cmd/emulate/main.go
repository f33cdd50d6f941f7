// Package main provides the emulator command.
//
// Usage: emulate [options] <file_in> [file_out]
//
// The program image is loaded at address 0 and run until it halts. The
// final machine state is written to file_out, or to stdout if omitted.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/a64sim/emu"
	"github.com/sarchlab/a64sim/loader"
)

var (
	configPath = flag.String("config", "", "Path to emulator configuration JSON file")
	maxInsts   = flag.Uint64("max", 0, "Maximum instructions to execute (0 = config value)")
	verbose    = flag.Bool("v", false, "Trace every executed instruction")
	cpuProfile = flag.String("cpuprofile", "", "Write a CPU profile of the run to file")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		fmt.Fprintf(os.Stderr, "Usage: emulate [options] <file_in> [file_out]\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	outPath := ""
	if flag.NArg() == 2 {
		outPath = flag.Arg(1)
	}

	if err := run(config, flag.Arg(0), outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*emu.Config, error) {
	config := emu.DefaultConfig()
	if *configPath != "" {
		var err error
		config, err = emu.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
	}

	if *maxInsts != 0 {
		config.MaxInstructions = *maxInsts
	}
	if *verbose {
		config.Trace = true
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func run(config *emu.Config, inPath, outPath string) error {
	img, err := loader.LoadImage(inPath)
	if err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(config.Level())

	emulator := emu.NewEmulator(append(config.Options(), emu.WithLogger(logger))...)
	if err := img.LoadInto(emulator); err != nil {
		return err
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			return fmt.Errorf("failed to create CPU profile: %w", err)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	start := time.Now()
	if err := emulator.Run(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	logger.WithFields(logrus.Fields{
		"instructions": emulator.InstructionCount(),
		"elapsed":      elapsed,
	}).Info("Halted")

	if outPath == "" {
		return emulator.DumpState(os.Stdout)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer func() { _ = f.Close() }()

	return emulator.DumpState(f)
}
