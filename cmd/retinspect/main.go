// retinspect prints the state of a region file written by regionfile.OpenStore:
// sequence numbers, stored and computed checksums of both pages and which
// page recovery would keep. It only reads the file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/kjk/retatomic/retained"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/tidwall/pretty"
)

type options struct {
	dump  bool
	diff  bool
	color bool
}

func dumpPage(p *retained.PageReport) string {
	return fmt.Sprintf("page %s seq %d\n%s", p.Page, p.SeqNum, spew.Sdump(p.Data))
}

func diffPages(r *retained.Report) (string, error) {
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(dumpPage(&r.A)),
		B:        difflib.SplitLines(dumpPage(&r.B)),
		FromFile: "page A",
		ToFile:   "page B",
		Context:  1,
	}
	return difflib.GetUnifiedDiffString(d)
}

func inspect(w io.Writer, path string, opts options) error {
	d, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	r, err := retained.InspectRegion(d)
	if err != nil {
		return fmt.Errorf("'%s': %w", path, err)
	}
	js, err := json.Marshal(r)
	if err != nil {
		return err
	}
	js = pretty.Pretty(js)
	if opts.color {
		js = pretty.Color(js, nil)
	}
	if _, err = w.Write(js); err != nil {
		return err
	}
	if opts.dump {
		fmt.Fprintf(w, "\n%s\n%s", dumpPage(&r.A), dumpPage(&r.B))
	}
	if opts.diff {
		s, err := diffPages(r)
		if err != nil {
			return err
		}
		if s == "" {
			s = "pages are identical\n"
		}
		fmt.Fprintf(w, "\n%s", s)
	}
	return nil
}

func main() {
	var opts options
	flag.BoolVar(&opts.dump, "dump", false, "print raw bytes of both pages")
	flag.BoolVar(&opts.diff, "diff", false, "print a diff of both pages")
	flag.BoolVar(&opts.color, "color", false, "colorize json output")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: retinspect [flags] <region-file>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	failed := false
	for _, path := range flag.Args() {
		if err := inspect(os.Stdout, path, opts); err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}
