// Package ui provides semantic text formatting for the calcvault CLI.
//
// Formatters colorize output when the terminal supports it. With NO_COLOR
// set or on a dumb terminal they fall back to plain decorations:
//
//	ui.Code.Sprint("calcvault serve")   // `calcvault serve`
//	ui.Highlight.Sprint("alice")        // 'alice'
//	ui.Muted.Sprint("default")          // (default)
//
// Console is the verbosity-aware printer commands use for progress output.
package ui
