package analyzer

// Warning kinds raised during analysis.
const (
	WarnUnsupportedType = "unsupported-type"
	WarnDepthLimit      = "depth-limit"
	WarnBreadthLimit    = "breadth-limit"
)

// Warning represents a non-fatal issue found while analyzing types.
type Warning struct {
	// File is the source file path where the warning was raised, when known.
	File string
	// Message is a human-readable description of the issue.
	Message string
	// Kind classifies the warning (one of the Warn* constants).
	Kind string
}

// WarningCollector collects warnings during analysis.
type WarningCollector struct {
	Warnings []Warning
}

// NewWarningCollector creates a new, empty warning collector.
func NewWarningCollector() *WarningCollector {
	return &WarningCollector{}
}

// Add records a new warning.
func (wc *WarningCollector) Add(file, kind, message string) {
	wc.Warnings = append(wc.Warnings, Warning{File: file, Kind: kind, Message: message})
}
