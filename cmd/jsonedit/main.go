package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/kevinwang15/jsonedit"
	"github.com/kevinwang15/jsonedit/internal/docfile"
)

type options struct {
	file    string
	path    string
	format  string
	set     string
	fields  []string
	diff    string
	indent  int
	dryRun  bool
	noColor bool
	verbose bool
	help    bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := pflag.NewFlagSet("jsonedit", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: jsonedit -f FILE [options]\n\n")
		fmt.Fprintf(stderr, "jsonedit shows or replaces one node of a JSON or YAML document.\n")
		fmt.Fprintf(stderr, "Paths are JSON arrays of keys and indexes; [] is the whole document.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  jsonedit -f app.json -p '[\"server\"]'                 # show a node\n")
		fmt.Fprintf(stderr, "  jsonedit -f app.json -p '[\"server\"]' -F port=8081    # edit one field\n")
		fmt.Fprintf(stderr, "  jsonedit -f app.yaml -p '[\"tags\"]' -s '[\"a\",\"b\"]' --diff unified\n")
	}

	fs.StringVarP(&opts.file, "file", "f", "", "Document to edit (.json, .yaml, .yml)")
	fs.StringVarP(&opts.path, "path", "p", "[]", "Path of the node as a JSON array, e.g. '[\"a\",0]'")
	fs.StringVar(&opts.format, "format", "", "Document format: json or yaml (default: from extension)")
	fs.StringVarP(&opts.set, "set", "s", "", "Replace the node with this JSON text")
	fs.StringArrayVarP(&opts.fields, "field", "F", nil, "Set one field as key=text (repeatable)")
	fs.StringVar(&opts.diff, "diff", "", "Print a diff of the document: unified or inline")
	fs.IntVar(&opts.indent, "indent", 2, "Indent width of the written JSON")
	fs.BoolVarP(&opts.dryRun, "dry-run", "n", false, "Do not write the file")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable coloured output")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show this help message")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.help {
		fs.Usage()
		return 0
	}

	color.NoColor = opts.noColor || !isTerminal(stdout)
	errColor := color.New(color.FgRed, color.Bold)

	if err := edit(fs, opts, stdout, stderr); err != nil {
		errColor.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func edit(fs *pflag.FlagSet, opts options, stdout, stderr io.Writer) error {
	if opts.file == "" {
		return fmt.Errorf("missing --file")
	}
	if opts.diff != "" && opts.diff != "unified" && opts.diff != "inline" {
		return fmt.Errorf("unknown --diff mode %q", opts.diff)
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	format, err := docfile.ParseFormat(opts.format, opts.file)
	if err != nil {
		return err
	}
	doc, err := docfile.Open(opts.file, format, logger)
	if err != nil {
		return err
	}
	path, err := jsonedit.ParsePath(opts.path)
	if err != nil {
		return err
	}
	tree, err := jsonedit.Decode(doc.DocumentText())
	if err != nil {
		return err
	}
	node, err := jsonedit.NodeAt(tree, path)
	if err != nil {
		return err
	}

	cfg := jsonedit.DefaultConfig()
	cfg.Indent = strings.Repeat(" ", opts.indent)
	cfg.Logger = logger
	sess := jsonedit.NewSession(doc, cfg)
	if err := sess.Select(node, path); err != nil {
		return err
	}

	if !fs.Changed("set") && len(opts.fields) == 0 {
		printView(stdout, sess)
		return nil
	}

	before := doc.DocumentText()
	if err := sess.Edit(); err != nil {
		return err
	}
	if fs.Changed("set") {
		if err := sess.SetText(opts.set); err != nil {
			sess.Cancel()
			return err
		}
	}
	for _, kv := range opts.fields {
		key, text, ok := strings.Cut(kv, "=")
		if !ok {
			sess.Cancel()
			return fmt.Errorf("--field %q is not key=text", kv)
		}
		if err := sess.SetField(key, text); err != nil {
			sess.Cancel()
			return err
		}
	}
	if err := sess.Commit(); err != nil {
		return err
	}
	after := doc.DocumentText()

	switch opts.diff {
	case "unified":
		if err := printUnified(stdout, opts.file, before, after); err != nil {
			return err
		}
	case "inline":
		printInline(stdout, before, after)
	}

	if opts.dryRun {
		if opts.diff == "" {
			out, err := doc.Encoded()
			if err != nil {
				return err
			}
			fmt.Fprint(stdout, string(out))
		}
	} else if err := doc.Save(); err != nil {
		return err
	}
	sess.Recomputed()

	printView(stdout, sess)
	return nil
}

func printView(w io.Writer, sess *jsonedit.Session) {
	color.New(color.FgCyan).Fprintln(w, sess.Locator())
	fmt.Fprintln(w, sess.View())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
