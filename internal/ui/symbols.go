package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Passed
	SymbolFail     = "✗" // Failed
	SymbolPending  = "○" // Not yet started
	SymbolProgress = "◐" // Running
	SymbolComplete = "●" // Done
	SymbolSkipped  = "⊘" // Skipped
	SymbolWarn     = "!" // Passed with warnings
)
