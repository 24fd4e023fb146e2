// jobspec.go - QLoRA fine-tuning job description consumed by the external trainer

package training

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoRAConfig holds adapter hyperparameters
type LoRAConfig struct {
	Rank          int      `yaml:"rank"`
	Alpha         int      `yaml:"alpha"`
	Dropout       float64  `yaml:"dropout"`
	TargetModules []string `yaml:"target_modules"`
	Bias          string   `yaml:"bias"`
	TaskType      string   `yaml:"task_type"`
}

// QuantizationConfig describes 4-bit loading of the base model
type QuantizationConfig struct {
	LoadIn4Bit   bool   `yaml:"load_in_4bit"`
	QuantType    string `yaml:"quant_type"`
	DoubleQuant  bool   `yaml:"double_quant"`
	ComputeDType string `yaml:"compute_dtype"`
}

// TrainerConfig holds optimizer and schedule settings
type TrainerConfig struct {
	Epochs                    int     `yaml:"epochs"`
	PerDeviceBatchSize        int     `yaml:"per_device_batch_size"`
	GradientAccumulationSteps int     `yaml:"gradient_accumulation_steps"`
	LearningRate              float64 `yaml:"learning_rate"`
	LoggingSteps              int     `yaml:"logging_steps"`
	SaveStrategy              string  `yaml:"save_strategy"`
	BF16                      bool    `yaml:"bf16"`
	Optimizer                 string  `yaml:"optimizer"`
}

// JobSpec is the full fine-tuning job
type JobSpec struct {
	BaseModel    string             `yaml:"base_model"`
	DatasetFile  string             `yaml:"dataset_file"`
	OutputDir    string             `yaml:"output_dir"`
	MaxSeqLength int                `yaml:"max_seq_length"`
	LoRA         LoRAConfig         `yaml:"lora"`
	Quantization QuantizationConfig `yaml:"quantization"`
	Trainer      TrainerConfig      `yaml:"trainer"`
}

// DefaultJobSpec returns the reference QLoRA setup for Qwen2-VL-2B
func DefaultJobSpec(datasetFile string) JobSpec {
	return JobSpec{
		BaseModel:    "Qwen/Qwen2-VL-2B-Instruct",
		DatasetFile:  datasetFile,
		OutputDir:    "./checkpoints/qlora/qwen2-vl-agent-checkpoint",
		MaxSeqLength: 1024,
		LoRA: LoRAConfig{
			Rank:          16,
			Alpha:         32,
			Dropout:       0.05,
			TargetModules: []string{"q_proj", "k_proj", "v_proj", "o_proj", "gate_proj", "up_proj", "down_proj"},
			Bias:          "none",
			TaskType:      "CAUSAL_LM",
		},
		Quantization: QuantizationConfig{
			LoadIn4Bit:   true,
			QuantType:    "nf4",
			DoubleQuant:  true,
			ComputeDType: "bfloat16",
		},
		Trainer: TrainerConfig{
			Epochs:                    3,
			PerDeviceBatchSize:        1,
			GradientAccumulationSteps: 16,
			LearningRate:              2e-4,
			LoggingSteps:              5,
			SaveStrategy:              "epoch",
			BF16:                      true,
			Optimizer:                 "paged_adamw_8bit",
		},
	}
}

// Validate checks the fields the trainer cannot default
func (j JobSpec) Validate() error {
	var errs []error
	if j.BaseModel == "" {
		errs = append(errs, errors.New("base_model is required"))
	}
	if j.DatasetFile == "" {
		errs = append(errs, errors.New("dataset_file is required"))
	}
	if j.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if j.MaxSeqLength <= 0 {
		errs = append(errs, fmt.Errorf("max_seq_length must be positive, got %d", j.MaxSeqLength))
	}
	if j.LoRA.Rank <= 0 || j.LoRA.Alpha <= 0 {
		errs = append(errs, fmt.Errorf("lora rank and alpha must be positive, got %d/%d", j.LoRA.Rank, j.LoRA.Alpha))
	}
	if j.LoRA.Dropout < 0 || j.LoRA.Dropout >= 1 {
		errs = append(errs, fmt.Errorf("lora dropout must be in [0,1), got %v", j.LoRA.Dropout))
	}
	return errors.Join(errs...)
}

// WriteJobSpec writes spec as YAML
func WriteJobSpec(path string, spec JobSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid job spec: %w", err)
	}
	data, err := yaml.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to encode job spec: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// LoadJobSpec reads a YAML job spec. Missing fields keep their default values.
func LoadJobSpec(path string) (JobSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return JobSpec{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	spec := DefaultJobSpec("")
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return JobSpec{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return spec, spec.Validate()
}

// Checkpoint lists the files the trainer writes into its output directory
type Checkpoint struct {
	Dir             string
	AdapterConfig   string
	AdapterWeights  string
	ProcessorConfig string
	TokenizerConfig string
}

// CheckpointLayout returns the expected file paths under outputDir
func CheckpointLayout(outputDir string) Checkpoint {
	return Checkpoint{
		Dir:             outputDir,
		AdapterConfig:   filepath.Join(outputDir, "adapter_config.json"),
		AdapterWeights:  filepath.Join(outputDir, "adapter_model.safetensors"),
		ProcessorConfig: filepath.Join(outputDir, "preprocessor_config.json"),
		TokenizerConfig: filepath.Join(outputDir, "tokenizer_config.json"),
	}
}

// Missing returns the expected files that do not exist yet
func (c Checkpoint) Missing() []string {
	var missing []string
	for _, path := range []string{c.AdapterConfig, c.AdapterWeights, c.ProcessorConfig, c.TokenizerConfig} {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}
	return missing
}
