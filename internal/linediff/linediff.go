// Package linediff renders line-oriented diffs of text.
package linediff

import (
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// Kind is the side a line belongs to.
type Kind int

const (
	Equal Kind = iota
	Delete
	Insert
)

// Line is one line of a diff, without its newline.
type Line struct {
	Kind Kind
	Text string
}

// Lines diffs from and to line by line.
func Lines(from, to string) []Line {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []Line
	for _, d := range diffs {
		kind := Equal
		switch d.Type {
		case diffpatch.DiffDelete:
			kind = Delete
		case diffpatch.DiffInsert:
			kind = Insert
		}
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text == "" {
				continue
			}
			out = append(out, Line{Kind: kind, Text: strings.TrimSuffix(text, "\n")})
		}
	}
	return out
}

// Unified returns the changed lines of from and to prefixed with "-" and
// "+" under a "--- expected / +++ actual" header, or "" when they are
// equal.
func Unified(expected, actual string) string {
	if expected == actual {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("--- expected\n+++ actual\n")
	for _, l := range Lines(expected, actual) {
		switch l.Kind {
		case Delete:
			sb.WriteString("-" + l.Text + "\n")
		case Insert:
			sb.WriteString("+" + l.Text + "\n")
		}
	}
	return sb.String()
}
