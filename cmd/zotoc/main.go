// Command zotoc builds a PDF outline (bookmark tree) from the highlight
// annotations of a document located through its citation key.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"zotoc/internal/commit"
	"zotoc/internal/config"
	"zotoc/internal/extract"
	"zotoc/internal/outline"
	"zotoc/internal/pdfdoc"
	"zotoc/internal/pdftext"
	"zotoc/internal/preview"
	"zotoc/internal/ui"
	"zotoc/internal/zotero"
)

// Exit codes, one per failure stage.
const (
	exitOK      = 0
	exitResolve = 1
	exitExtract = 2
	exitCommit  = 3
	exitOther   = 4
)

const usage = `usage: zotoc <command> [options]

commands:
  outline <citekey>   build and commit an outline from highlight annotations
  preview <citekey>   print the outline that would be written, without writing
  colors  <citekey>   list highlight colors observed in the document

options (outline, preview):
  -color #rrggbb[=level]   highlight color to use; repeat with levels for a
                           nested outline; omit to pick interactively
  -pdf path                operate on a PDF file directly, skipping the
                           citation key lookup
  -yes                     outline only: overwrite without asking
  -html                    preview only: render the preview as HTML
`

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(exitOther)
	}

	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(exitOther)
	}

	app := &app{cfg: cfg, log: log, prompt: ui.New(os.Stdin, os.Stderr)}

	var runErr error
	switch os.Args[1] {
	case "outline":
		runErr = app.outline(os.Args[2:])
	case "preview":
		runErr = app.preview(os.Args[2:])
	case "colors":
		runErr = app.colors(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(exitOther)
	}

	if runErr != nil {
		log.Error("run failed", "error", runErr)
		fmt.Fprintln(os.Stderr, "zotoc:", runErr)
		os.Exit(exitCode(runErr))
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// exitCode maps an error to the exit code of the stage that failed.
func exitCode(err error) int {
	var ambiguous *zotero.AmbiguousAttachmentError
	switch {
	case errors.Is(err, zotero.ErrStoreLocked),
		errors.Is(err, zotero.ErrUnknownKey),
		errors.As(err, &ambiguous):
		return exitResolve
	case errors.Is(err, extract.ErrNoMatch):
		return exitExtract
	case errors.Is(err, commit.ErrDeclined),
		errors.Is(err, commit.ErrBackupFailed),
		errors.Is(err, commit.ErrWriteFailed):
		return exitCommit
	}
	return exitOther
}

type app struct {
	cfg    *config.Config
	log    *slog.Logger
	prompt *ui.Prompter
}

// colorSpec is one -color argument: a color and its outline level.
type colorSpec struct {
	color pdfdoc.RGB
	level int
}

// colorFlags collects repeated -color values.
type colorFlags []colorSpec

func (c *colorFlags) String() string {
	var parts []string
	for _, spec := range *c {
		parts = append(parts, fmt.Sprintf("%s=%d", spec.color.Hex(), spec.level))
	}
	return strings.Join(parts, ",")
}

func (c *colorFlags) Set(v string) error {
	spec := colorSpec{level: len(*c)}
	if eq := strings.IndexByte(v, '='); eq >= 0 {
		level, err := strconv.Atoi(v[eq+1:])
		if err != nil || level < 0 {
			return fmt.Errorf("invalid level in %q", v)
		}
		spec.level = level
		v = v[:eq]
	}
	color, err := parseHexColor(v)
	if err != nil {
		return err
	}
	spec.color = color
	*c = append(*c, spec)
	return nil
}

func parseHexColor(s string) (pdfdoc.RGB, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return pdfdoc.RGB{}, fmt.Errorf("invalid color %q, want #rrggbb", s)
	}
	var c pdfdoc.RGB
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(h[2*i:2*i+2], 16, 8)
		if err != nil {
			return pdfdoc.RGB{}, fmt.Errorf("invalid color %q, want #rrggbb", s)
		}
		c[i] = float64(v) / 255
	}
	return c, nil
}

func (a *app) outline(args []string) error {
	fs := flag.NewFlagSet("outline", flag.ExitOnError)
	var colors colorFlags
	fs.Var(&colors, "color", "highlight color #rrggbb[=level], repeatable")
	pdfPath := fs.String("pdf", "", "PDF file to process instead of resolving a citation key")
	yes := fs.Bool("yes", false, "overwrite without asking")
	fs.Parse(args)

	path, err := a.documentPath(fs, *pdfPath)
	if err != nil {
		return err
	}

	roots, err := a.buildOutline(path, colors)
	if err != nil {
		return err
	}

	confirm := a.confirmOverwrite
	if *yes {
		confirm = func(commit.Summary) (bool, error) { return true, nil }
	}
	return a.commitOutline(path, roots, confirm)
}

func (a *app) preview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	var colors colorFlags
	fs.Var(&colors, "color", "highlight color #rrggbb[=level], repeatable")
	pdfPath := fs.String("pdf", "", "PDF file to process instead of resolving a citation key")
	asHTML := fs.Bool("html", false, "render as HTML")
	fs.Parse(args)

	path, err := a.documentPath(fs, *pdfPath)
	if err != nil {
		return err
	}

	roots, err := a.buildOutline(path, colors)
	if err != nil {
		return err
	}

	if *asHTML {
		out, err := preview.HTML(roots)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}
	fmt.Print(preview.Markdown(roots))
	return nil
}

func (a *app) colors(args []string) error {
	fs := flag.NewFlagSet("colors", flag.ExitOnError)
	pdfPath := fs.String("pdf", "", "PDF file to inspect instead of resolving a citation key")
	fs.Parse(args)

	path, err := a.documentPath(fs, *pdfPath)
	if err != nil {
		return err
	}

	doc, err := pdfdoc.Open(path)
	if err != nil {
		return err
	}
	ex := extract.New(a.log, pdftext.New(path))
	counts, err := ex.Colors(doc)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Println("no highlight annotations found")
		return nil
	}
	for _, c := range counts {
		fmt.Printf("%s  %3d highlights  e.g. %q\n", ui.Swatch(c.Color), c.Count, c.Sample)
	}
	return nil
}

// documentPath resolves the positional citation key, unless -pdf names a
// file directly.
func (a *app) documentPath(fs *flag.FlagSet, pdfPath string) (string, error) {
	if pdfPath != "" {
		return pdfPath, nil
	}
	if fs.NArg() != 1 {
		return "", errors.New("expected exactly one citation key (or -pdf path)")
	}
	key := fs.Arg(0)
	path, err := zotero.NewResolver(a.cfg.DataDir).Resolve(key)
	if err != nil {
		return "", err
	}
	a.log.Info("resolved citation key", "key", key, "path", path)
	return path, nil
}

// buildOutline extracts one pass per requested color and merges the
// passes into a single tree. With no -color flags the observed colors
// are listed and one is chosen interactively, producing a flat outline.
func (a *app) buildOutline(path string, colors colorFlags) ([]*outline.Node, error) {
	doc, err := pdfdoc.Open(path)
	if err != nil {
		return nil, err
	}
	ex := extract.New(a.log, pdftext.New(path))

	if len(colors) == 0 {
		chosen, err := a.chooseColor(doc, ex)
		if err != nil {
			return nil, err
		}
		colors = colorFlags{{color: chosen, level: 0}}
	}

	var entries []outline.Entry
	for _, spec := range colors {
		anns, err := ex.Extract(doc, spec.color, a.cfg.ColorTolerance)
		if err != nil {
			return nil, err
		}
		a.log.Info("extracted highlights", "color", spec.color.Hex(), "level", spec.level, "count", len(anns))
		for _, ann := range anns {
			entries = append(entries, outline.Entry{
				Title: ann.Text,
				Page:  ann.Page,
				Top:   ann.Top(),
				Left:  ann.Left(),
				Level: spec.level,
				Seq:   len(entries),
			})
		}
	}

	return outline.Build(entries), nil
}

func (a *app) chooseColor(doc *pdfdoc.File, ex *extract.Extractor) (pdfdoc.RGB, error) {
	counts, err := ex.Colors(doc)
	if err != nil {
		return pdfdoc.RGB{}, err
	}
	if len(counts) == 0 {
		return pdfdoc.RGB{}, fmt.Errorf("%w: document has no highlight annotations", extract.ErrNoMatch)
	}
	if !ui.Interactive() {
		return pdfdoc.RGB{}, errors.New("no -color given and stdin is not a terminal")
	}

	options := make([]string, len(counts))
	for i, c := range counts {
		options[i] = fmt.Sprintf("%s  %d highlights  e.g. %q", ui.Swatch(c.Color), c.Count, c.Sample)
	}
	idx, err := a.prompt.Select("choose a highlight color", options)
	if err != nil {
		return pdfdoc.RGB{}, err
	}
	return counts[idx].Color, nil
}

func (a *app) confirmOverwrite(s commit.Summary) (bool, error) {
	if !ui.Interactive() {
		return false, errors.New("refusing to overwrite without -yes on a non-interactive run")
	}
	fmt.Fprintf(os.Stderr, "about to write %d outline entries to %s (backup: %s)\n",
		s.Entries, s.Path, s.BackupPath)
	return a.prompt.AskYesNo("replace the original file?")
}

func (a *app) commitOutline(path string, roots []*outline.Node, confirm commit.Confirm) error {
	doc, err := pdfdoc.Open(path)
	if err != nil {
		return err
	}
	c := commit.New(a.log, confirm)
	if err := c.Write(doc, path, roots); err != nil {
		return err
	}
	a.log.Info("outline written", "path", path, "entries", outline.Count(roots))
	return nil
}
