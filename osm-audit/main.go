package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	flag "github.com/spf13/pflag"

	"osm-ingest/audit"
	"osm-ingest/config"
	"osm-ingest/osmxml"
)

var reportFile = flag.StringP("out", "o", "", "Write the report to this file instead of stdout")

func main() {
	config.LoadDotenv()

	flag.Usage = func() {
		_, _ = fmt.Fprintln(os.Stderr, "osm-audit: Reports street types and values the cleaning rules do not cover")
		_, _ = fmt.Fprintln(os.Stderr, "usage: osm-audit [flags] <file.osm>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	r, err := cfg.Rules()
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	a := audit.New(r)
	dec := osmxml.NewDecoder(bufio.NewReader(f))
	for {
		el, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			log.Fatal(err)
		}
		a.Add(el)
	}

	var w io.Writer = os.Stdout
	if *reportFile != "" {
		out, err := os.Create(*reportFile)
		if err != nil {
			log.Fatal(err)
		}
		defer out.Close()
		w = out
	}

	if err := a.Result().WriteReport(w); err != nil {
		log.Fatal(err)
	}
}
