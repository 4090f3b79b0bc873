// Package models holds the result records urlfinder writes out.
package models

import (
	"github.com/Sriram-PR/urlfinder/pkg/urls"
	"github.com/Sriram-PR/urlfinder/pkg/utils"
)

// Report is the result of scanning one input
type Report struct {
	Source string       `yaml:"source" json:"source"`                     // File path, or "-" for stdin
	Kind   string       `yaml:"kind,omitempty" json:"kind,omitempty"`     // Front end the blob was routed to
	SHA256 string       `yaml:"sha256,omitempty" json:"sha256,omitempty"` // Digest of the raw input
	Size   int          `yaml:"size" json:"size"`                         // Input size in bytes
	Status ReportStatus `yaml:"status" json:"status"`
	Error  string       `yaml:"error,omitempty" json:"error,omitempty"` // Error category (on failure)
	Count  int          `yaml:"count" json:"count"`
	Cached bool         `yaml:"cached,omitempty" json:"cached,omitempty"` // Reused from the report database
	URLs   []string     `yaml:"urls" json:"urls"`
}

// NewReport builds the report for a scanned blob
func NewReport(source, kind string, blob []byte, found []string) Report {
	if found == nil {
		found = []string{}
	}
	status := ReportStatusFound
	if len(found) == 0 {
		status = ReportStatusEmpty
	}
	return Report{
		Source: source,
		Kind:   kind,
		SHA256: utils.CalculateSHA256(blob),
		Size:   len(blob),
		Status: status,
		Count:  len(found),
		URLs:   found,
	}
}

// FailedReport builds the report for an input that could not be read
func FailedReport(source string, err error) Report {
	return Report{
		Source: source,
		Status: ReportStatusFailure,
		Error:  utils.CategorizeError(err),
		URLs:   []string{},
	}
}

// URLCheck describes how a single value is understood
type URLCheck struct {
	Value    string     `yaml:"value" json:"value"`
	IsURL    bool       `yaml:"is_url" json:"is_url"`
	ASCIIURL bool       `yaml:"ascii_url" json:"ascii_url"` // URL once non-ASCII bytes are dropped
	Key      string     `yaml:"key" json:"key"`
	Netlocs  []string   `yaml:"netlocs,omitempty" json:"netlocs,omitempty"`
	Children []URLCheck `yaml:"children,omitempty" json:"children,omitempty"` // URLs recovered from redirect wrappers
}

// NewURLCheck inspects raw and, up to maxDepth levels, the URLs wrapped inside it
func NewURLCheck(raw string, maxDepth int) URLCheck {
	return newURLCheck(urls.New(raw), maxDepth)
}

func newURLCheck(u *urls.URL, depth int) URLCheck {
	check := URLCheck{
		Value:    u.String(),
		IsURL:    u.IsURL(),
		ASCIIURL: u.IsURLASCII(),
		Key:      u.Key(),
	}
	if !check.IsURL {
		return check
	}
	check.Netlocs = u.Netlocs()
	if depth <= 0 {
		return check
	}
	for _, child := range u.ChildURLs() {
		check.Children = append(check.Children, newURLCheck(child, depth-1))
	}
	return check
}
