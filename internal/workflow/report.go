// report.go - Final report template

package workflow

import (
	"strings"

	"github.com/bosocmputer/degradation_inspector/internal/ai"
)

const (
	ReportHeader = "--- [AI Master Report] ---"
	ReportFooter = "--------------------------"
)

// FormatReport wraps the raw analysis between the report header and footer.
func FormatReport(analysis string) string {
	return ReportHeader + "\n" + analysis + "\n" + ReportFooter
}

// DegradationDetected reports whether a report or analysis states a positive detection.
func DegradationDetected(report string) bool {
	return strings.Contains(report, ai.DetectedMarker)
}
