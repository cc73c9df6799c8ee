// Command rxprobe reads an extract and prints how its header binds: one line
// per hierarchy field, the discovered brand slots and any leftover columns.
// It exits non-zero when a report run over the extract would fail.
//
// Example:
//
//	rxprobe -file data/extract.csv
//	rxprobe -url https://crm.example/export.csv -bytes 65536 -json
//	rxprobe -list extracts.txt
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"rxreport/internal/config"
	"rxreport/internal/datasource"
	"rxreport/internal/datasource/file"
	"rxreport/internal/datasource/httpds"
	"rxreport/internal/parser/csv"
	"rxreport/internal/probe"
	"rxreport/internal/schema"
	"rxreport/internal/slots"
)

var (
	flagConfig = flag.String("config", "", "pipeline config; its source, parser, schema and slots sections are used")
	flagFile   = flag.String("file", "", "local extract path (overrides the config source)")
	flagURL    = flag.String("url", "", "extract URL (overrides the config source)")
	flagList   = flag.String("list", "", "file with one extract path per line; # starts a comment")
	flagBytes  = flag.Int64("bytes", 0, "read at most this many bytes; the last row may be cut (0 = all)")
	flagComma  = flag.String("delimiter", "", "CSV field delimiter (single character)")
	flagJSON   = flag.Bool("json", false, "print JSON instead of a table")
)

func main() {
	flag.Parse()

	var p config.Pipeline
	if *flagConfig != "" {
		var err error
		if p, err = config.Load(*flagConfig); err != nil {
			fatalf("%v", err)
		}
	}
	p.ApplyDefaults()
	if p.Parser.Options == nil {
		p.Parser.Options = config.Options{}
	}
	if *flagComma != "" {
		p.Parser.Options["comma"] = *flagComma
	}

	var sources []datasource.Source
	switch {
	case *flagList != "":
		paths, err := file.ReadList(*flagList)
		if err != nil {
			fatalf("%v", err)
		}
		for _, path := range paths {
			sources = append(sources, file.NewLocal(path))
		}
	case *flagFile != "":
		sources = append(sources, file.NewLocal(*flagFile))
	case *flagURL != "":
		sources = append(sources, httpds.NewSource(httpds.NewClient(httpds.Config{Timeout: 30 * time.Second}), *flagURL))
	case p.Source.Kind == "http":
		sources = append(sources, httpds.NewSource(httpds.NewClient(httpds.Config{MaxRetries: p.Source.HTTP.MaxRetries}), p.Source.HTTP.URL))
	case p.Source.File.Path != "":
		sources = append(sources, file.NewLocal(p.Source.File.Path))
	default:
		fatalf("rxprobe: one of -file, -url, -list or -config is required")
	}

	syn := schema.DefaultSynonyms().Merge(p.Schema.Synonyms)
	ready := true
	for i, src := range sources {
		if i > 0 && !*flagJSON {
			fmt.Println()
		}
		rep, err := probeOne(context.Background(), src, p.Parser.Options, syn, p.Slots.Convention())
		if err != nil {
			log.Printf("rxprobe: %s: %v", src.Name(), err)
			ready = false
			continue
		}
		if *flagJSON {
			err = probe.WriteJSON(os.Stdout, rep)
		} else {
			err = probe.WriteText(os.Stdout, rep)
		}
		if err != nil {
			fatalf("%v", err)
		}
		ready = ready && rep.Ready
	}
	if !ready {
		os.Exit(2)
	}
}

func probeOne(ctx context.Context, src datasource.Source, opt config.Options, syn schema.Synonyms, conv slots.Convention) (probe.Report, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return probe.Report{}, err
	}
	defer rc.Close()

	var in io.Reader = rc
	if *flagBytes > 0 {
		in = io.LimitReader(rc, *flagBytes)
	}
	var dropped int
	tbl, err := csv.ReadTable(ctx, in, opt, func(line int, err error) {
		dropped++
		if dropped <= 5 {
			log.Printf("rxprobe: %s line %d dropped: %v", src.Name(), line, err)
		}
	})
	if err != nil {
		return probe.Report{}, err
	}
	if dropped > 0 {
		log.Printf("rxprobe: %s: %d rows dropped by the reader", src.Name(), dropped)
	}
	return probe.Inspect(src.Name(), tbl, syn, conv), nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
