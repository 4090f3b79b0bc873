package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/urlfinder/pkg/config"
	"github.com/Sriram-PR/urlfinder/pkg/log"
	"github.com/Sriram-PR/urlfinder/pkg/models"
	"github.com/Sriram-PR/urlfinder/pkg/storage"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func validConfig(t *testing.T, cfg *config.Config) *config.Config {
	t.Helper()
	_, err := cfg.Validate()
	require.NoError(t, err)
	return cfg
}

func TestLoadConfig_Empty(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.True(t, cfg.IsStrict())
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := loadConfig("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestDoValidate_Valid(t *testing.T) {
	cfgPath := writeFile(t, "config.yaml", "domain_as_url: true\nworkers: 2\nexclude_patterns: ['\\.png$']\n")

	var stdout, stderr bytes.Buffer
	exitCode := doValidate(cfgPath, &stdout, &stderr)

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "OK: strict=true domain_as_url=true scheme=http workers=2 format=text exclude_patterns=1")
	assert.Contains(t, stdout.String(), "Configuration valid")
	assert.Empty(t, stderr.String())
}

func TestDoValidate_Warnings(t *testing.T) {
	cfgPath := writeFile(t, "config.yaml", "min_ascii_length: -1\n")

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, doValidate(cfgPath, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "WARN: min_ascii_length cannot be negative")
}

func TestDoValidate_Invalid(t *testing.T) {
	cfgPath := writeFile(t, "config.yaml", "default_scheme: gopher\n")

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, doValidate(cfgPath, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "ERROR:")
	assert.Contains(t, stderr.String(), "DefaultScheme")
}

func TestDoValidate_FileNotFound(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, doValidate("/nonexistent/config.yaml", &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Error:")
}

func TestDoFind_Stdin(t *testing.T) {
	cfg := validConfig(t, &config.Config{})
	stdin := strings.NewReader("see https://www.domain.com/redirect?url=http://domain2.com\n")

	var stdout bytes.Buffer
	exitCode := doFind(context.Background(), cfg, nil, stdin, &stdout, nil, log.Discard())

	assert.Equal(t, 0, exitCode)
	assert.Equal(t, "http://domain2.com\nhttps://www.domain.com/redirect?url=http://domain2.com\n", stdout.String())
}

func TestDoFind_FilesMergedInText(t *testing.T) {
	a := writeFile(t, "a.txt", "http://domain.com/a\nhttp://domain.com/shared\n")
	b := writeFile(t, "b.txt", "http://domain.com/b\nhttp://domain.com/shared\n")
	cfg := validConfig(t, &config.Config{Workers: 2})

	var stdout bytes.Buffer
	exitCode := doFind(context.Background(), cfg, []string{a, b}, nil, &stdout, nil, log.Discard())

	assert.Equal(t, 0, exitCode)
	assert.Equal(t, "http://domain.com/a\nhttp://domain.com/b\nhttp://domain.com/shared\n", stdout.String())
}

func TestDoFind_JSONReports(t *testing.T) {
	a := writeFile(t, "a.txt", "http://domain.com/a\n")
	missing := filepath.Join(t.TempDir(), "missing.txt")
	cfg := validConfig(t, &config.Config{OutputFormat: "json"})

	var stdout bytes.Buffer
	exitCode := doFind(context.Background(), cfg, []string{a, missing}, nil, &stdout, nil, log.Discard())
	assert.Equal(t, 1, exitCode)

	var reports []models.Report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &reports))
	require.Len(t, reports, 2)

	assert.Equal(t, a, reports[0].Source)
	assert.Equal(t, "text", reports[0].Kind)
	assert.Equal(t, models.ReportStatusFound, reports[0].Status)
	assert.Equal(t, []string{"http://domain.com/a"}, reports[0].URLs)

	assert.Equal(t, missing, reports[1].Source)
	assert.Equal(t, models.ReportStatusFailure, reports[1].Status)
	assert.Equal(t, "Filesystem_NotExist", reports[1].Error)
}

func TestDoFind_YAMLReports(t *testing.T) {
	cfg := validConfig(t, &config.Config{OutputFormat: "yaml"})

	var stdout bytes.Buffer
	exitCode := doFind(context.Background(), cfg, nil, strings.NewReader("nothing here"), &stdout, nil, log.Discard())
	assert.Equal(t, 0, exitCode)

	var reports []models.Report
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, stdinSource, reports[0].Source)
	assert.Equal(t, models.ReportStatusEmpty, reports[0].Status)
}

func TestDoFind_ReusesStoredReports(t *testing.T) {
	store, err := storage.NewBadgerStore(t.TempDir(), false, log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	a := writeFile(t, "a.txt", "http://domain.com/a\n")
	cfg := validConfig(t, &config.Config{OutputFormat: "json"})

	run := func() models.Report {
		var stdout bytes.Buffer
		require.Equal(t, 0, doFind(context.Background(), cfg, []string{a}, nil, &stdout, store, log.Discard()))
		var reports []models.Report
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &reports))
		require.Len(t, reports, 1)
		return reports[0]
	}

	first := run()
	assert.False(t, first.Cached)
	assert.Equal(t, 1, store.Count())

	second := run()
	assert.True(t, second.Cached)
	assert.Equal(t, first.URLs, second.URLs)
	assert.Equal(t, first.SHA256, second.SHA256)

	cfg.DomainAsURL = true
	assert.False(t, run().Cached, "changed settings are scanned again")
	assert.Equal(t, 2, store.Count())
}

func TestDoFind_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := validConfig(t, &config.Config{})

	var stdout bytes.Buffer
	assert.Equal(t, 1, doFind(ctx, cfg, nil, strings.NewReader("http://domain.com\n"), &stdout, nil, log.Discard()))
	assert.Empty(t, stdout.String())
}

func TestDoCheck(t *testing.T) {
	var stdout, stderr bytes.Buffer
	exitCode := doCheck([]string{"https://www.domain.com/redirect?url=http://domain2.com"}, 16, "json", &stdout, &stderr)
	assert.Equal(t, 0, exitCode)

	var checks []models.URLCheck
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &checks))
	require.Len(t, checks, 1)
	assert.True(t, checks[0].IsURL)
	require.Len(t, checks[0].Children, 1)
	assert.Equal(t, "http://domain2.com", checks[0].Children[0].Value)
}

func TestDoCheck_NotURL(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, doCheck([]string{"domain"}, 16, "yaml", &stdout, &stderr))
	assert.Contains(t, stdout.String(), "is_url: false")
}

func TestDoCheck_UnknownFormat(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, doCheck([]string{"http://domain.com"}, 16, "xml", &stdout, &stderr))
	assert.Contains(t, stderr.String(), "unknown output format")
}

func TestDoPermutations(t *testing.T) {
	var stdout bytes.Buffer
	doPermutations([]string{"http://domain.com/a b"}, &stdout)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Contains(t, lines, "http://domain.com/a b")
	assert.Contains(t, lines, "http://domain.com/a%20b")
}

func TestPrintUsageTo(t *testing.T) {
	var buf bytes.Buffer
	printUsageTo(&buf)

	for _, cmd := range []string{"find", "check", "permutations", "validate", "version"} {
		assert.Contains(t, buf.String(), cmd)
	}
}

func TestWriteReports_Text(t *testing.T) {
	reports := []models.Report{
		{URLs: []string{"http://b.com", "http://a.com"}},
		{URLs: []string{"http://a.com"}},
	}
	var buf bytes.Buffer
	require.NoError(t, writeReports(&buf, "text", reports))
	assert.Equal(t, "http://a.com\nhttp://b.com\n", buf.String())

	assert.Error(t, writeReports(io.Discard, "xml", reports))
}
