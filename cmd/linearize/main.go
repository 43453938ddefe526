// Command linearize reads one document and writes its linearized content to
// stdout. Extracted images are written under -img-dir.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/dgallion1/docread/internal/imagestore"
	"github.com/dgallion1/docread/internal/materialize"
	"github.com/dgallion1/docread/internal/parser"
)

func main() {
	imgDir := flag.String("img-dir", imagestore.Namespace, "directory for extracted images")
	asJSON := flag.Bool("json", false, "print the full document (content, metadata, issues) as JSON")
	workers := flag.Int("images", 4, "images materialized concurrently per page")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdout, flag.Arg(0), *imgDir, *workers, *asJSON, log); err != nil {
		log.Error("linearize failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, path, imgDir string, workers int, asJSON bool, log *slog.Logger) error {
	p := parser.ForFile(path, parser.Options{
		Materializer:        materialize.New(imagestore.NewFileStore(imgDir)),
		Log:                 log,
		MaxConcurrentImages: workers,
	})

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := p.Parse(ctx, f, path)
	if err != nil {
		return err
	}
	for _, issue := range doc.Issues {
		log.Warn("recovered", "page", issue.Page, "kind", issue.Kind, "message", issue.Message)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	_, err = fmt.Fprintln(out, doc.Content)
	return err
}
