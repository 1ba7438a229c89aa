package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of a message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Detail       string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized error message
//
// Example output:
//
//	❌ TYPE NOT FOUND: Cannot find type 'Sample.Playr'.
//
//	   Did you mean: Sample.Player?
//
//	   → List types: dotother describe sample.toml
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	var header, body *color.Color
	var symbol string
	switch opts.Level {
	case ErrorLevelWarning:
		header, body, symbol = paint(opts.NoColor, color.FgYellow, color.Bold), paint(opts.NoColor, color.FgYellow), "⚠️"
	case ErrorLevelInfo:
		header, body, symbol = paint(opts.NoColor, color.FgCyan, color.Bold), paint(opts.NoColor, color.FgCyan), "ℹ️"
	default:
		header, body, symbol = paint(opts.NoColor, color.FgRed, color.Bold), paint(opts.NoColor, color.FgRed), "❌"
	}

	if opts.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if opts.Detail != "" {
		b.WriteString("\n")
		body.Fprintf(&b, "   %s\n", opts.Detail)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		paint(opts.NoColor, color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := paint(opts.NoColor, color.FgCyan)
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}
	return b.String()
}

// WriteError writes a formatted error message to w
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	return paint(noColor, color.FgGreen, color.Bold).Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to w
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// TypeNotFoundError reports a type name missing from the loaded assemblies
func TypeNotFoundError(name string, known []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context:     "type not found",
		Problem:     fmt.Sprintf("Cannot find type '%s'.", name),
		Suggestions: Suggest(name, known, 3),
		HelpCommands: []string{
			"List types: dotother describe <manifest>",
		},
		NoColor: noColor,
	})
}

// MemberNotFoundError reports a method missing from a type
func MemberNotFoundError(typeName, member string, known []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context:     "member not found",
		Problem:     fmt.Sprintf("Type '%s' has no method '%s'.", typeName, member),
		Suggestions: Suggest(member, known, 3),
		HelpCommands: []string{
			"Show members: dotother describe --verbose <manifest>",
		},
		NoColor: noColor,
	})
}

// LoadError reports an assembly that failed to load
func LoadError(path string, err error, noColor bool) string {
	return FormatError(ErrorOptions{
		Context: "load failed",
		Problem: fmt.Sprintf("Cannot load assembly '%s'.", path),
		Detail:  err.Error(),
		HelpCommands: []string{
			"Check the manifest is valid TOML with a top-level name",
		},
		NoColor: noColor,
	})
}
