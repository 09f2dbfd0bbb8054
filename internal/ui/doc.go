// Package ui renders ftest's terminal output with Lip Gloss: numbered test
// steps, spinners for long waits, the doctor checklist, tables and the run
// summary.
//
// Colors are ANSI codes so they follow the terminal theme. ConfigureColors
// applies the output.color setting and --no-color.
//
//	steps := ui.NewStepLogger(os.Stdout, log)
//	steps.Step("Upgrade pool %s", label)
//	steps.Done(err)
//
// Interactive pieces use Bubble Tea (ChecklistModel) and Huh (Confirm) and
// fall back to plain output when stdout or stdin is not a terminal.
package ui
