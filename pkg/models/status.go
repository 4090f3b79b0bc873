package models

// ReportStatus is the outcome of scanning a single input
type ReportStatus string

const (
	ReportStatusUnset   ReportStatus = ""        // Zero value = not scanned yet
	ReportStatusFound   ReportStatus = "found"   // At least one URL was found
	ReportStatusEmpty   ReportStatus = "empty"   // Input was read but held no URLs
	ReportStatusFailure ReportStatus = "failure" // Input could not be read
)

// String implements fmt.Stringer for logging
func (s ReportStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known outcome
func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportStatusFound, ReportStatusEmpty, ReportStatusFailure:
		return true
	}
	return false
}
