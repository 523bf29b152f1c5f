// Package output provides colored, human-facing printers for CLI summaries.
//
// Structured logs go through the logger package; these printers are for the
// short status lines a person reads after running a command.
package output
