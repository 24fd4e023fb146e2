// main.go - Builds the training dataset and the fine-tuning job spec.

package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/bosocmputer/degradation_inspector/configs"
	"github.com/bosocmputer/degradation_inspector/internal/dataset"
	"github.com/bosocmputer/degradation_inspector/internal/training"
)

func main() {
	configs.LoadConfig()

	root := flag.String("root", configs.DATASET_ROOT, "dataset root directory")
	output := flag.String("output", configs.DATASET_OUTPUT, "output JSON file")
	sigma := flag.Float64("sigma", configs.NOISE_SIGMA, "standard deviation of the Gaussian noise")
	seed := flag.Int64("seed", configs.NOISE_SEED, "noise seed (0 seeds from the clock)")
	concurrency := flag.Int("concurrency", 4, "images noised in parallel")
	jobSpec := flag.String("job-spec", "", "also write the fine-tuning job spec (YAML) to this path")
	validate := flag.Bool("validate", true, "validate the written dataset")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	builder := dataset.NewBuilder(*root)
	builder.Sigma = *sigma
	builder.Seed = *seed
	builder.Concurrency = *concurrency

	records, stats, err := builder.Build(ctx)
	if err != nil {
		log.Fatalf("Failed to build dataset: %v", err)
	}
	if len(stats.MissingFolders) > 0 {
		log.Printf("⚠️  %d dataset folder(s) missing", len(stats.MissingFolders))
	}
	if stats.NoiseFailures > 0 {
		log.Printf("⚠️  %d image(s) could not be noised", stats.NoiseFailures)
	}

	if err := dataset.WriteJSON(*output, records); err != nil {
		log.Fatalf("Failed to write dataset: %v", err)
	}
	log.Printf("✨ Done! Created %s with %d records", *output, stats.Records)
	for label, n := range stats.PerLabel {
		log.Printf("   %-12s %d", label, n)
	}

	if *validate {
		summary, err := training.ValidateDataset(*output, ".")
		if err != nil {
			log.Fatalf("Dataset validation failed: %v", err)
		}
		log.Printf("✓ Dataset valid: %d records", summary.Records)
	}

	if *jobSpec != "" {
		job := training.DefaultJobSpec(*output)
		if err := training.WriteJobSpec(*jobSpec, job); err != nil {
			log.Fatalf("Failed to write job spec: %v", err)
		}
		log.Printf("📝 Job spec written to %s (base model %s, output %s)", *jobSpec, job.BaseModel, job.OutputDir)
		if missing := training.CheckpointLayout(job.OutputDir).Missing(); len(missing) > 0 {
			log.Printf("   checkpoint not trained yet (%d file(s) missing in %s)", len(missing), job.OutputDir)
		}
	}
}
