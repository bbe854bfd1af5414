package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/minio/minio-go/v7"
	miniocredentials "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"

	"osm-ingest/changelog"
	"osm-ingest/cleaning"
	"osm-ingest/config"
	"osm-ingest/csvout"
	"osm-ingest/ingest"
	"osm-ingest/metrics"
	"osm-ingest/osmxml"
	"osm-ingest/shape"
	"osm-ingest/storage"
	"osm-ingest/stream"
)

var (
	outDir      = flag.StringP("out", "o", "out", "Directory to write the CSV files to")
	metricsFile = flag.String("metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	upload      = flag.Bool("upload", false, "Upload the CSV files to MinIO after the run")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	config.LoadDotenv()

	flag.Usage = func() {
		_, _ = fmt.Fprintln(os.Stderr, "osm-ingest: Converts an OSM XML file into normalized CSV tables")
		_, _ = fmt.Fprintln(os.Stderr, "usage: osm-ingest [flags] <file.osm>")
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
	slog.SetDefault(cfg.Logger())

	r, err := cfg.Rules()
	if err != nil {
		log.Fatal(err)
	}

	start := time.Now()
	m := metrics.New()

	out, err := csvout.Create(*outDir)
	if err != nil {
		log.Fatal(err)
	}

	changes := changelog.Multi{out}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to redis: ", err)
		}
		changes = append(changes, changelog.NewRedisStream(rdb, cfg.RedisStream, cfg.RedisStreamMax))
		slog.Info("logging changes to redis", "stream", cfg.RedisStream)
	}

	street, err := cleaning.NewStreetNormalizer(r, cfg.StreetCacheSize)
	if err != nil {
		log.Fatal(err)
	}
	shaper := shape.New(cleaning.NewValueNormalizer(street, changes), m.Hooks())

	sinks := ingest.MultiSink{out}
	var pub *stream.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		w, err := stream.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatal(err)
		}
		pub = stream.NewPublisher(w, cfg.BatchSize)
		sinks = append(sinks, pub)
		slog.Info("publishing bundles to kafka", "topic", cfg.KafkaTopic)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	slog.Info("ingest start", "input", flag.Arg(0), "out", *outDir)
	stats, err := ingest.Run(ctx, osmxml.NewDecoder(bufio.NewReader(f)), shaper, sinks)
	if err != nil {
		log.Fatal(err)
	}

	if pub != nil {
		if err := pub.Close(ctx); err != nil {
			log.Fatal(err)
		}
	}
	if err := out.Close(); err != nil {
		log.Fatal(err)
	}

	m.Finish(start)
	if *metricsFile != "" {
		if err := m.WriteTextfile(*metricsFile); err != nil {
			log.Fatal(err)
		}
	}

	if *upload {
		uploadExport(ctx, cfg)
	}

	slog.Info("ingest end", "nodes", stats.Nodes, "ways", stats.Ways, "tags", stats.Tags, "elapsed", time.Since(start))
}

func uploadExport(ctx context.Context, cfg config.Config) {
	if cfg.MinioEndpoint == "" {
		log.Fatal("MINIO_ENDPOINT not set")
	}
	mc, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  miniocredentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: !cfg.MinioInsecure,
	})
	if err != nil {
		log.Fatal(err)
	}

	runID, err := storage.NewRunID()
	if err != nil {
		log.Fatal(err)
	}

	uploads, err := storage.NewUploader(mc, cfg.MinioBucket, cfg.MinioPrefix).UploadDir(ctx, *outDir, runID)
	if err != nil {
		log.Fatal(fmt.Errorf("error uploading export %s: %w", runID, err))
	}
	slog.Info("upload end", "run_id", runID, "bucket", cfg.MinioBucket, "files", len(uploads))
}
