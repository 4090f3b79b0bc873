package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/urlfinder/pkg/utils"
)

const (
	DefaultScheme           = "http"
	DefaultMinASCIILength   = 4
	DefaultMaxRedirectDepth = 16
	DefaultWorkers          = 4
	DefaultOutputFormat     = "text"
)

// Config holds the extraction settings shared by every input of a run
type Config struct {
	Strict           *bool    `yaml:"strict,omitempty"`                                                   // Bracket tokens need both delimiters (default true)
	DomainAsURL      bool     `yaml:"domain_as_url,omitempty"`                                            // Treat bare domains as URLs
	DefaultScheme    string   `yaml:"default_scheme,omitempty" validate:"omitempty,oneof=http https ftp"` // Scheme given to bare domains
	BaseURL          string   `yaml:"base_url,omitempty" validate:"omitempty,url"`                        // Base for relative HTML links
	MinASCIILength   int      `yaml:"min_ascii_length,omitempty"`                                         // Shortest printable run read from binary input
	MaxRedirectDepth int      `yaml:"max_redirect_depth,omitempty"`                                       // Wrapper layers unwrapped per URL
	Workers          int      `yaml:"workers,omitempty"`                                                  // Inputs processed concurrently
	ExcludePatterns  []string `yaml:"exclude_patterns,omitempty"`                                         // Regex patterns for URLs to drop
	OutputFormat     string   `yaml:"output_format,omitempty" validate:"omitempty,oneof=text yaml json"`  // Report format
	StateDir         string   `yaml:"state_dir,omitempty"`                                                // Report database directory, empty disables it
}

// IsStrict returns the effective strict setting
func (c *Config) IsStrict() bool {
	if c.Strict != nil {
		return *c.Strict
	}
	return true
}

// Fingerprint identifies the settings that change what a scan finds. Reports stored
// under one fingerprint are only reused by runs with the same fingerprint.
func (c *Config) Fingerprint() string {
	patterns := slices.Clone(c.ExcludePatterns)
	slices.Sort(patterns)
	parts := []string{
		strconv.FormatBool(c.IsStrict()),
		strconv.FormatBool(c.DomainAsURL),
		c.DefaultScheme,
		c.BaseURL,
		strconv.Itoa(c.MinASCIILength),
		strconv.Itoa(c.MaxRedirectDepth),
		strings.Join(patterns, "\x00"),
	}
	return utils.CalculateSHA256([]byte(strings.Join(parts, "\n")))[:16]
}

// Load reads a YAML configuration file. The result is not validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config %s: %w", utils.ErrFilesystem, path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: YAML config %s: %v", utils.ErrParsing, path, err)
	}
	return &cfg, nil
}
