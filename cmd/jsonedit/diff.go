package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
)

func printUnified(w io.Writer, name, before, after string) error {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before + "\n"),
		B:        difflib.SplitLines(after + "\n"),
		FromFile: name + " (before)",
		ToFile:   name + " (after)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return fmt.Errorf("failed to diff: %w", err)
	}

	add := color.New(color.FgGreen)
	del := color.New(color.FgRed)
	hunk := color.New(color.FgCyan)
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		ln := sc.Text()
		switch {
		case strings.HasPrefix(ln, "+++"), strings.HasPrefix(ln, "---"):
			fmt.Fprintln(w, ln)
		case strings.HasPrefix(ln, "@@"):
			hunk.Fprintln(w, ln)
		case strings.HasPrefix(ln, "+"):
			add.Fprintln(w, ln)
		case strings.HasPrefix(ln, "-"):
			del.Fprintln(w, ln)
		default:
			fmt.Fprintln(w, ln)
		}
	}
	return sc.Err()
}

// printInline prints a character-level diff. Without colour, insertions are
// marked {+...+} and deletions [-...-].
func printInline(w io.Writer, before, after string) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))

	add := color.New(color.FgGreen, color.Underline)
	del := color.New(color.FgRed, color.CrossedOut)
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			if color.NoColor {
				fmt.Fprintf(w, "{+%s+}", d.Text)
			} else {
				add.Fprint(w, d.Text)
			}
		case diffmatchpatch.DiffDelete:
			if color.NoColor {
				fmt.Fprintf(w, "[-%s-]", d.Text)
			} else {
				del.Fprint(w, d.Text)
			}
		default:
			fmt.Fprint(w, d.Text)
		}
	}
	fmt.Fprintln(w)
}
