package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"osm-ingest/cleaning"
	"osm-ingest/config"
	"osm-ingest/ingest"
	"osm-ingest/metrics"
	"osm-ingest/osmxml"
	"osm-ingest/overpass"
	"osm-ingest/repos"
	"osm-ingest/shape"
)

var (
	bbox = flag.StringP("bbox", "b", "", "Query Overpass for this south,west,north,east box instead of reading a file")
	keys = flag.StringSlice("keys", []string{"addr:street", "addr:postcode", "phone"},
		"Tag keys selecting elements in an Overpass query")
	drop        = flag.Bool("drop", false, "Drop and recreate the tables before loading")
	metricsFile = flag.String("metrics-file", "", "Write Prometheus metrics to this textfile after the run")
)

func init() {
	config.LoadDotenv()

	flag.Parse()
}

func main() {
	ctx := context.Background()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(cfg.Logger())

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if (*bbox == "") == (flag.NArg() == 0) {
		log.Fatal("usage: osm-load [flags] <file.osm> | osm-load --bbox south,west,north,east")
	}

	r, err := cfg.Rules()
	if err != nil {
		log.Fatal(err)
	}

	repo, err := repos.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer repo.Close()

	if err := repo.Migrate(ctx, *drop); err != nil {
		log.Fatal(err)
	}

	var src ingest.Source
	if *bbox != "" {
		src = queryOverpass(ctx, cfg.OverpassEndpoint, *bbox)
	} else {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		src = osmxml.NewDecoder(bufio.NewReader(f))
	}

	start := time.Now()
	m := metrics.New()
	batch := repos.NewBatchWriter(repo, cfg.BatchSize)

	street, err := cleaning.NewStreetNormalizer(r, cfg.StreetCacheSize)
	if err != nil {
		log.Fatal(err)
	}
	shaper := shape.New(cleaning.NewValueNormalizer(street, batch), m.Hooks())

	stats, err := ingest.Run(ctx, src, shaper, batch)
	if err != nil {
		log.Fatal(err)
	}
	if err := batch.Flush(ctx); err != nil {
		log.Fatal(err)
	}

	m.Finish(start)
	if *metricsFile != "" {
		if err := m.WriteTextfile(*metricsFile); err != nil {
			log.Fatal(err)
		}
	}

	slog.Info("load end", "nodes", stats.Nodes, "ways", stats.Ways, "saved", batch.Saved(), "elapsed", time.Since(start))
}

func queryOverpass(ctx context.Context, endpoint, box string) *overpass.Source {
	parts := strings.Split(box, ",")
	if len(parts) != 4 {
		log.Fatalf("bbox must be south,west,north,east, got %q", box)
	}
	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			log.Fatal(fmt.Errorf("parse bbox: %w", err))
		}
		coords[i] = v
	}

	q := overpass.BBoxQuery(coords[0], coords[1], coords[2], coords[3], *keys...)
	slog.Info("querying overpass", "bbox", box, "keys", *keys)

	resp, err := overpass.New(endpoint).Query(ctx, q)
	if err != nil {
		log.Fatal(err)
	}
	slog.Info("overpass response", "generator", resp.Generator, "elements", resp.Count)
	return overpass.NewSource(resp)
}
