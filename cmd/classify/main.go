// classify runs the mineral classifier over image files and prints one
// result block per image.
//
//	classify [-top 3] [-json] specimens/ extra.jpg
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/mineral-api/internal/capture"
	"github.com/Brownie44l1/mineral-api/internal/config"
	"github.com/Brownie44l1/mineral-api/internal/log"
	"github.com/Brownie44l1/mineral-api/internal/model"
	"github.com/Brownie44l1/mineral-api/internal/pipeline"
)

var (
	modelPath    = flag.String("model", "", "ONNX model path (default: $MODEL_PATH or models/"+config.DefaultModelFile+")")
	metadataPath = flag.String("metadata", "", "Model metadata path (default: $METADATA_PATH or models/"+config.DefaultMetadataFile+")")
	topK         = flag.Int("top", pipeline.DefaultTopK, "Number of ranked classes to include with -json")
	asJSON       = flag.Bool("json", false, "Print one JSON object per image instead of text")
	quiet        = flag.Bool("q", false, "Hide the progress bar")
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: classify [flags] <image|dir>...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	root, err := config.ProjectRoot()
	if err != nil {
		logrus.Fatal(err)
	}
	cfg, err := config.FromEnv(root)
	if err != nil {
		logrus.Fatalf("invalid environment: %v", err)
	}
	if *modelPath != "" {
		cfg.ModelPath = *modelPath
	}
	if *metadataPath != "" {
		cfg.MetadataPath = *metadataPath
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	log.Init(cfg.LogLevel)
	logger := log.Component("classify")

	files, err := collect(flag.Args())
	if err != nil {
		logger.Fatal(err)
	}
	if len(files) == 0 {
		logger.Fatal("no images found")
	}

	session, err := model.NewSession(cfg.ModelPath, cfg.MetadataPath, cfg.ORTLibPath)
	if err != nil {
		logger.Fatalf("failed to initialize model session: %v", err)
	}

	var sink pipeline.Sink = pipeline.NewWriterSink(os.Stdout)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		sink = pipeline.SinkFunc(func(r pipeline.Result) {
			if err := enc.Encode(r); err != nil {
				logger.WithError(err).Error("failed to encode result")
			}
		})
	}

	p := pipeline.New(session, sink,
		pipeline.WithInferenceTimeout(cfg.InferenceTimeout),
		pipeline.WithLogger(log.Component("pipeline")),
		pipeline.WithTopK(*topK),
	)

	var bar *pb.ProgressBar
	if !*quiet {
		bar = pb.StartNew(len(files))
	}

	failed := run(context.Background(), p, files, bar, logger)

	if bar != nil {
		bar.Finish()
	}
	session.Close()
	model.Shutdown()

	logger.WithFields(logrus.Fields{
		"images": len(files),
		"failed": failed,
	}).Info("done")
	if failed > 0 {
		os.Exit(1)
	}
}

func run(ctx context.Context, p *pipeline.Pipeline, files []string, bar *pb.ProgressBar, logger logrus.FieldLogger) int {
	failed := 0
	for i, path := range files {
		if err := classifyFile(ctx, p, path); err != nil {
			failed++
			logger.WithError(err).WithField("file", path).Warn("classification failed")
			if p.Halted() {
				// Remaining images cannot be classified either.
				return failed + len(files) - i - 1
			}
		}
		if bar != nil {
			bar.Increment()
		}
	}
	return failed
}

func classifyFile(ctx context.Context, p *pipeline.Pipeline, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	frame, err := capture.Decode(f)
	if err != nil {
		return err
	}
	_, err = p.OneShot(ctx, frame)
	return err
}

// collect expands directories (one level, image extensions only) and keeps
// explicit file arguments as given.
func collect(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			found = append(found, filepath.Join(arg, e.Name()))
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}
