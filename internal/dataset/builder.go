// builder.go - Builds the supervised fine-tuning dataset from labelled image folders

package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bosocmputer/degradation_inspector/internal/ai"
	"github.com/bosocmputer/degradation_inspector/internal/chat"
	"github.com/bosocmputer/degradation_inspector/internal/processor"
	"golang.org/x/sync/errgroup"
)

// Kind says how the images of a source folder are treated
type Kind string

const (
	// KindDenoise folders hold clean images; each one also gets a noised copy
	KindDenoise Kind = "denoise"
	// KindDerain folders hold naturally degraded images used as they are
	KindDerain Kind = "derain"
)

// Labels maps a degradation kind to the Type written in the report. Derain images are labelled with
// the kind name itself.
var Labels = map[Kind]string{
	KindDenoise: "Noised",
	KindDerain:  string(KindDerain),
}

const (
	CleanLabel    = "Clean"
	DefaultOutput = "train_data_augmented.json"
)

var validExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// Source is one dataset folder, relative to the dataset root
type Source struct {
	Dir  string
	Kind Kind
}

// DefaultSources returns the BSD400 clean set and the Rain100L rainy set
func DefaultSources() []Source {
	return []Source{
		{Dir: "Denoise/BSD400", Kind: KindDenoise},
		{Dir: "Derain/rain100L/rainy", Kind: KindDerain},
	}
}

// Stats summarizes a build
type Stats struct {
	Records        int            `json:"records"`
	Images         int            `json:"images"`
	NoisedWritten  int            `json:"noised_written"`
	NoiseFailures  int            `json:"noise_failures"`
	MissingFolders []string       `json:"missing_folders,omitempty"`
	PerLabel       map[string]int `json:"per_label"`
}

// Builder walks the sources and produces training conversations
type Builder struct {
	Root          string
	Sources       []Source
	NoisedDirName string  // default "Noised"
	Sigma         float64 // default 25
	Mean          float64
	Concurrency   int   // default 4
	Seed          int64 // 0 seeds from the clock
}

// NewBuilder returns a builder with the default sources and parameters
func NewBuilder(root string) *Builder {
	return &Builder{
		Root:          root,
		Sources:       DefaultSources(),
		NoisedDirName: "Noised",
		Sigma:         25,
		Concurrency:   4,
	}
}

type noiseJob struct {
	src    string
	dst    string
	result string
	ok     bool
}

// Build produces the records in source order, files sorted by name. A missing folder or a failed
// noise image is logged and skipped.
func (b *Builder) Build(ctx context.Context) ([]chat.Conversation, Stats, error) {
	b.applyDefaults()

	records := []chat.Conversation{}
	stats := Stats{PerLabel: map[string]int{}}

	add := func(imagePath, label string) {
		records = append(records, NewRecord(imagePath, label))
		stats.PerLabel[label]++
	}

	log.Printf("📂 Building dataset from %s", b.Root)

	for _, src := range b.Sources {
		folder := filepath.Join(b.Root, filepath.FromSlash(src.Dir))
		images, err := listImages(folder)
		if err != nil {
			if os.IsNotExist(err) {
				log.Printf("⚠️  Folder missing: %s", filepath.ToSlash(folder))
				stats.MissingFolders = append(stats.MissingFolders, filepath.ToSlash(folder))
				continue
			}
			return nil, stats, fmt.Errorf("failed to list %s: %w", folder, err)
		}
		log.Printf("   -> [%s] processing... (%d images)", src.Dir, len(images))
		stats.Images += len(images)

		switch src.Kind {
		case KindDenoise:
			jobs, err := b.addNoise(ctx, src, folder, images)
			if err != nil {
				return nil, stats, err
			}
			for i, name := range images {
				add(toSlash(folder, name), CleanLabel)
				if jobs[i].ok {
					add(filepath.ToSlash(jobs[i].result), Labels[KindDenoise])
					stats.NoisedWritten++
				} else {
					stats.NoiseFailures++
				}
			}

		default:
			label, ok := Labels[src.Kind]
			if !ok {
				return nil, stats, fmt.Errorf("unknown source kind %q for %s", src.Kind, src.Dir)
			}
			for _, name := range images {
				add(toSlash(folder, name), label)
			}
		}
	}

	stats.Records = len(records)
	log.Printf("✅ Dataset built: %d records from %d images", stats.Records, stats.Images)
	return records, stats, nil
}

// addNoise writes noise_<name> for every clean image under <Root>/<category>/<NoisedDirName>
func (b *Builder) addNoise(ctx context.Context, src Source, folder string, images []string) ([]noiseJob, error) {
	category := strings.SplitN(filepath.ToSlash(src.Dir), "/", 2)[0]
	noiseDir := filepath.Join(b.Root, category, b.NoisedDirName)
	if err := os.MkdirAll(noiseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", noiseDir, err)
	}

	seed := b.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	jobs := make([]noiseJob, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.Concurrency)

	for i, name := range images {
		i := i
		jobs[i] = noiseJob{
			src: filepath.Join(folder, name),
			dst: filepath.Join(noiseDir, "noise_"+name),
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			job := &jobs[i]
			written, err := processor.AddGaussianNoise(job.src, job.dst, processor.NoiseOptions{
				Mean:  b.Mean,
				Sigma: b.Sigma,
				Rand:  rand.New(rand.NewSource(seed + int64(i))),
			})
			if err != nil {
				log.Printf("⚠️  Noise generation failed (%s): %v", filepath.ToSlash(job.src), err)
				return nil
			}
			job.result = written
			job.ok = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (b *Builder) applyDefaults() {
	if b.NoisedDirName == "" {
		b.NoisedDirName = "Noised"
	}
	if b.Sigma == 0 {
		b.Sigma = 25
	}
	if b.Concurrency <= 0 {
		b.Concurrency = 4
	}
}

// NewRecord builds one training conversation for an image and its label
func NewRecord(imagePath, label string) chat.Conversation {
	answer := ai.CleanReport()
	if label != CleanLabel {
		answer = ai.DetectedReport(label)
	}

	return chat.Conversation{Messages: []chat.Message{
		chat.UserMessage(chat.ImagePart(imagePath), chat.TextPart(ai.DatasetInstruction)),
		chat.AssistantMessage(chat.TextPart(answer)),
	}}
}

// WriteJSON writes records as a 2-space indented UTF-8 JSON array
func WriteJSON(path string, records []chat.Conversation) error {
	if records == nil {
		records = []chat.Conversation{}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	return f.Close()
}

// listImages returns the names of image files in folder, sorted by name
func listImages(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if validExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			images = append(images, entry.Name())
		}
	}
	return images, nil
}

func toSlash(folder, name string) string {
	return filepath.ToSlash(filepath.Join(folder, name))
}
