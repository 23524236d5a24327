package cli

import (
	"flag"
	"fmt"
	"strings"
)

const versionString = "1.0.0"
const defaultConfigPath = "./data/config/gridnote.toml"

type cliOptions struct {
	configPath    string
	doc           string
	open          string
	once          bool
	ui            bool
	impact        string
	export        string
	injectMermaid string
	revisionsTSV  string
	revisionsJSON string
	documents     bool
	sets          cellAssignments
	verbose       bool
	version       bool
	args          []string
}

// cellAssignment is one -set REF=CONTENT flag.
type cellAssignment struct {
	ref     string
	content string
}

type cellAssignments []cellAssignment

func (c *cellAssignments) String() string {
	parts := make([]string, 0, len(*c))
	for _, a := range *c {
		parts = append(parts, a.ref+"="+a.content)
	}
	return strings.Join(parts, ",")
}

// Set splits on the first '=' so formulas keep theirs: A1==B1*2.
func (c *cellAssignments) Set(value string) error {
	ref, content, ok := strings.Cut(value, "=")
	ref = strings.TrimSpace(ref)
	if !ok || ref == "" {
		return fmt.Errorf("expected REF=CONTENT, got %q", value)
	}
	*c = append(*c, cellAssignment{ref: strings.ToUpper(ref), content: content})
	return nil
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("gridnote", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.StringVar(&opts.doc, "doc", "", "Document file to open (*.grid.toml); created on first write")
	fs.StringVar(&opts.open, "open", "", "Open a document saved in history by name")
	fs.BoolVar(&opts.once, "once", false, "Evaluate the document, print it and exit")
	fs.BoolVar(&opts.ui, "ui", false, "Enable terminal UI mode")
	fs.StringVar(&opts.impact, "impact", "", "Print the cells that depend on a cell (A1 reference)")
	fs.StringVar(&opts.export, "export", "", "Export the sheet; format from extension (.tsv, .refs.tsv, .dot, .mmd, .md)")
	fs.StringVar(&opts.injectMermaid, "inject-mermaid", "", "Replace the reference diagram between gridnote:refs markers in a markdown file")
	fs.StringVar(&opts.revisionsTSV, "revisions-tsv", "", "Write the document's saved revisions as TSV (requires db.enabled)")
	fs.StringVar(&opts.revisionsJSON, "revisions-json", "", "Write the document's saved revisions as JSON (requires db.enabled)")
	fs.BoolVar(&opts.documents, "documents", false, "List documents saved in history (requires db.enabled)")
	fs.Var(&opts.sets, "set", "Set a cell before other commands run, REF=CONTENT (repeatable)")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}

// hasSingleCommand reports whether the run ends after the one-shot commands.
func (o cliOptions) hasSingleCommand() bool {
	return o.impact != "" ||
		o.export != "" ||
		o.injectMermaid != "" ||
		o.revisionsTSV != "" ||
		o.revisionsJSON != "" ||
		o.documents
}
