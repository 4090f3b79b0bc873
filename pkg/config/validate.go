package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Sriram-PR/urlfinder/pkg/utils"
)

var validate = validator.New()

// Validate checks Config fields and applies defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *Config) Validate() (warnings []string, err error) {
	// DefaultScheme
	c.DefaultScheme = strings.ToLower(strings.TrimSpace(c.DefaultScheme))
	if c.DefaultScheme == "" {
		c.DefaultScheme = DefaultScheme
	}

	// MinASCIILength
	if c.MinASCIILength <= 0 {
		if c.MinASCIILength < 0 {
			warnings = append(warnings, fmt.Sprintf("min_ascii_length cannot be negative, defaulting to %d", DefaultMinASCIILength))
		}
		c.MinASCIILength = DefaultMinASCIILength
	}

	// MaxRedirectDepth
	if c.MaxRedirectDepth <= 0 {
		if c.MaxRedirectDepth < 0 {
			warnings = append(warnings, fmt.Sprintf("max_redirect_depth cannot be negative, defaulting to %d", DefaultMaxRedirectDepth))
		}
		c.MaxRedirectDepth = DefaultMaxRedirectDepth
	}

	// Workers
	if c.Workers <= 0 {
		warnings = append(warnings, fmt.Sprintf("workers should be > 0, defaulting to %d", DefaultWorkers))
		c.Workers = DefaultWorkers
	}

	// OutputFormat
	c.OutputFormat = strings.ToLower(strings.TrimSpace(c.OutputFormat))
	if c.OutputFormat == "" {
		c.OutputFormat = DefaultOutputFormat
	}

	if err := validate.Struct(c); err != nil {
		return warnings, describeValidationError(err)
	}

	// ExcludePatterns must compile
	if _, err := utils.CompileExcludePatterns(c.ExcludePatterns); err != nil {
		return warnings, err
	}

	return warnings, nil
}

func describeValidationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("%w: %v", utils.ErrConfigValidation, err)
	}

	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := fmt.Sprintf("'%s' failed rule '%s'", e.Field(), e.Tag())
		if e.Param() != "" {
			msg += fmt.Sprintf(" (expected: %s)", e.Param())
		}
		if e.Value() != nil && e.Value() != "" {
			msg += fmt.Sprintf(", actual: '%v'", e.Value())
		}
		messages = append(messages, msg)
	}
	return fmt.Errorf("%w: %s", utils.ErrConfigValidation, strings.Join(messages, "; "))
}
