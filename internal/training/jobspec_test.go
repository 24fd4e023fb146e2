package training

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bosocmputer/degradation_inspector/internal/chat"
	"github.com/bosocmputer/degradation_inspector/internal/dataset"
)

func TestJobSpecRoundTripKeepsHyperparameters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	spec := DefaultJobSpec("train_data_augmented.json")

	if err := WriteJobSpec(path, spec); err != nil {
		t.Fatalf("WriteJobSpec() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	for _, want := range []string{"max_seq_length: 1024", "rank: 16", "alpha: 32", "quant_type: nf4"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("YAML missing %q:\n%s", want, data)
		}
	}

	loaded, err := LoadJobSpec(path)
	if err != nil {
		t.Fatalf("LoadJobSpec() error = %v", err)
	}
	if loaded.LoRA.Dropout != 0.05 || loaded.Trainer.GradientAccumulationSteps != 16 || len(loaded.LoRA.TargetModules) != 7 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestLoadJobSpecAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	if err := os.WriteFile(path, []byte("dataset_file: custom.json\nlora:\n  rank: 8\n"), 0644); err != nil {
		t.Fatal(err)
	}

	spec, err := LoadJobSpec(path)
	if err != nil {
		t.Fatalf("LoadJobSpec() error = %v", err)
	}
	if spec.DatasetFile != "custom.json" || spec.LoRA.Rank != 8 || spec.LoRA.Alpha != 32 || spec.MaxSeqLength != 1024 {
		t.Errorf("spec = %+v", spec)
	}
}

func TestWriteJobSpecRejectsInvalid(t *testing.T) {
	spec := DefaultJobSpec("")
	spec.LoRA.Dropout = 1.5

	err := WriteJobSpec(filepath.Join(t.TempDir(), "job.yaml"), spec)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "dataset_file") || !strings.Contains(err.Error(), "dropout") {
		t.Errorf("error should list every problem, got %v", err)
	}
}

func TestCheckpointLayout(t *testing.T) {
	dir := t.TempDir()
	layout := CheckpointLayout(dir)

	if len(layout.Missing()) != 4 {
		t.Errorf("fresh dir missing = %v", layout.Missing())
	}
	if err := os.WriteFile(layout.AdapterConfig, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if len(layout.Missing()) != 3 {
		t.Errorf("missing after adapter config = %v", layout.Missing())
	}
}

func TestValidateDataset(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "1.png"), []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	valid := filepath.Join(dir, "valid.json")
	records := []chat.Conversation{
		dataset.NewRecord("1.png", dataset.CleanLabel),
		dataset.NewRecord("1.png", "Noised"),
		dataset.NewRecord("1.png", "Noised"),
	}
	if err := dataset.WriteJSON(valid, records); err != nil {
		t.Fatal(err)
	}

	summary, err := ValidateDataset(valid, dir)
	if err != nil {
		t.Fatalf("ValidateDataset() error = %v", err)
	}
	if summary.Records != 3 || summary.PerLabel["Clean"] != 1 || summary.PerLabel["Noised"] != 2 {
		t.Errorf("summary = %+v", summary)
	}

	missing := filepath.Join(dir, "missing.json")
	if err := dataset.WriteJSON(missing, []chat.Conversation{dataset.NewRecord("gone.png", "Noised")}); err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateDataset(missing, dir); err == nil {
		t.Error("expected error for missing image")
	}

	swapped := filepath.Join(dir, "swapped.json")
	record := dataset.NewRecord("1.png", "Noised")
	record.Messages[0], record.Messages[1] = record.Messages[1], record.Messages[0]
	if err := dataset.WriteJSON(swapped, []chat.Conversation{record}); err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateDataset(swapped, dir); err == nil {
		t.Error("expected error for swapped roles")
	}
}
