package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/urlfinder/pkg/config"
	"github.com/Sriram-PR/urlfinder/pkg/models"
	"github.com/Sriram-PR/urlfinder/pkg/urls"
)

const version = "0.4.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "find":
		runFind(os.Args[2:])
	case "check":
		runCheck(os.Args[2:])
	case "permutations":
		runPermutations(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("urlfinder %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `urlfinder - URL extraction and redirect unwrapping

Usage:
  urlfinder <command> [options] [args]

Commands:
  find          Extract URLs from files (or stdin)
  check         Show how values are understood as URLs
  permutations  List the encoding permutations of values
  validate      Validate configuration file
  version       Show version info

Run 'urlfinder <command> -h' for command-specific help.`)
}

// loadConfig loads the config file, or returns an empty configuration when path is empty
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: urlfinder validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "OK: strict=%t domain_as_url=%t scheme=%s workers=%d format=%s exclude_patterns=%d\n",
		cfg.IsStrict(), cfg.DomainAsURL, cfg.DefaultScheme, cfg.Workers, cfg.OutputFormat, len(cfg.ExcludePatterns))
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// runCheck handles the check subcommand
func runCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	depth := fs.Int("depth", config.DefaultMaxRedirectDepth, "Wrapper layers to unwrap per value")
	format := fs.String("format", "yaml", "Output format (yaml, json)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: urlfinder check [options] <value>...\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  urlfinder check 'https://www.domain.com/redirect?url=http://domain2.com'\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}

	os.Exit(doCheck(fs.Args(), *depth, *format, os.Stdout, os.Stderr))
}

// doCheck describes every value. The exit code is 1 when any value is not a URL.
func doCheck(values []string, depth int, format string, stdout, stderr io.Writer) int {
	checks := make([]models.URLCheck, 0, len(values))
	exitCode := 0
	for _, v := range values {
		check := models.NewURLCheck(v, depth)
		if !check.IsURL {
			exitCode = 1
		}
		checks = append(checks, check)
	}

	if err := encode(stdout, format, checks); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return exitCode
}

// runPermutations handles the permutations subcommand
func runPermutations(args []string) {
	fs := flag.NewFlagSet("permutations", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: urlfinder permutations <value>...\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}

	doPermutations(fs.Args(), os.Stdout)
}

func doPermutations(values []string, stdout io.Writer) {
	for _, v := range values {
		for _, p := range urls.Permutations(v) {
			fmt.Fprintln(stdout, p)
		}
	}
}

// encode writes v as YAML or JSON
func encode(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format '%s'", format)
	}
}
