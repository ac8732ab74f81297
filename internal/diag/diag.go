// Package diag defines the non-fatal diagnostic values threaded through the
// pipeline, mirroring the accumulate-don't-abort error model used by
// syntax.Diagnostics in the pulumi-yaml sources (other_examples/2d9dc9d0...,
// other_examples/d88a148a...).
package diag

import (
	"fmt"
	"sort"
)

// Severity is the level of a Diagnostic.
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
)

// Code identifies the kind of diagnostic, per spec.md §6.
type Code string

const (
	CodeSyntaxError        Code = "SyntaxError"
	CodeSchemaError        Code = "SchemaError"
	CodeSchemaWarning      Code = "SchemaWarning"
	CodeDuplicateSymbol    Code = "DuplicateSymbol"
	CodeUnknownBuiltin     Code = "UnknownBuiltin"
	CodeTypeError          Code = "TypeError"
	CodeIndexError         Code = "IndexError"
	CodeDecodeError        Code = "DecodeError"
	CodeCycleDetected      Code = "CycleDetected"
	CodeUnknownTemplateKey Code = "UnknownTemplateKey"
	CodeUnbalancedBlocks   Code = "UnbalancedBlocks"
	CodeUnknownSymbol      Code = "UnknownSymbol"
)

// Diagnostic is one entry of the serialized diagnostics list (spec.md §6).
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     Code     `json:"code"`
	Message  string   `json:"message"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Column   int      `json:"column,omitempty"`
}

func (d Diagnostic) String() string {
	if d.File == "" {
		return fmt.Sprintf("%s: %s: %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s: %s", d.File, d.Line, d.Column, d.Severity, d.Code, d.Message)
}

// Diagnostics is an accumulating, sortable diagnostic list.
type Diagnostics []Diagnostic

// Errorf appends an error-severity diagnostic.
func (d *Diagnostics) Errorf(code Code, file string, line, col int, format string, args ...interface{}) {
	*d = append(*d, Diagnostic{
		Severity: Error,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		File:     file,
		Line:     line,
		Column:   col,
	})
}

// Warnf appends a warning-severity diagnostic.
func (d *Diagnostics) Warnf(code Code, file string, line, col int, format string, args ...interface{}) {
	*d = append(*d, Diagnostic{
		Severity: Warning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		File:     file,
		Line:     line,
		Column:   col,
	})
}

// Extend appends every diagnostic from other onto d.
func (d *Diagnostics) Extend(other Diagnostics) {
	*d = append(*d, other...)
}

// HasErrors reports whether any entry has Error severity.
func (d Diagnostics) HasErrors() bool {
	for _, diagnostic := range d {
		if diagnostic.Severity == Error {
			return true
		}
	}
	return false
}

// Sort orders diagnostics deterministically: by file, then line, then
// column, then message, per spec.md §9 ("Determinism").
func (d Diagnostics) Sort() {
	sort.SliceStable(d, func(i, j int) bool {
		a, b := d[i], d[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Message < b.Message
	})
}

func (d Diagnostics) Error() string {
	if len(d) == 0 {
		return "no diagnostics"
	}
	msg := d[0].String()
	if len(d) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(d)-1)
	}
	return msg
}
