// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/camhls/internal/config"
)

func runConfigCLI(args []string) int {
	return runConfig(args, os.Stdout, os.Stderr)
}

func runConfig(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  camhls config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  camhls config dump [--file|-f config.yaml]")
}

func parseFileFlag(name string, args []string, stderr io.Writer) (string, bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return "", false
	}
	path, _ := resolveConfigPath(file)
	return path, true
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	path, ok := parseFileFlag("camhls config validate", args, stderr)
	if !ok {
		return 2
	}
	if path == "" {
		fmt.Fprintln(stderr, "Error: --file is required (no config.yaml found in $"+config.EnvDataDir+")")
		return 2
	}

	if _, err := config.NewLoader(path, version).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", path, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s is valid\n", path)
	return 0
}

// runConfigDump prints the effective configuration (defaults + file + env)
// with secrets redacted. Without a file it dumps env + defaults.
func runConfigDump(args []string, stdout, stderr io.Writer) int {
	path, ok := parseFileFlag("camhls config dump", args, stderr)
	if !ok {
		return 2
	}

	cfg, err := config.NewLoader(path, version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}
	redactSecrets(&cfg)

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
		return 1
	}
	_ = enc.Close()
	return 0
}

func redactSecrets(cfg *config.AppConfig) {
	if cfg.Redis.Password != "" {
		cfg.Redis.Password = "***"
	}
	for i := range cfg.Discovery.Cameras {
		c := &cfg.Discovery.Cameras[i]
		if c.RTSPURL != "" {
			c.RTSPURL = maskURL(c.RTSPURL)
		}
		if c.RTMPURL != "" {
			c.RTMPURL = maskURL(c.RTMPURL)
		}
	}
}
