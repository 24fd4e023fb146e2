// validate.go - Checks a dataset file before it is handed to the trainer

package training

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bosocmputer/degradation_inspector/internal/chat"
)

// DatasetSummary describes a valid dataset file
type DatasetSummary struct {
	Records  int            `json:"records"`
	PerLabel map[string]int `json:"per_label"`
}

// ValidateDataset checks every record is user{image,text} followed by assistant{text} and that
// every referenced image exists. Relative image paths are resolved against baseDir.
func ValidateDataset(path, baseDir string) (DatasetSummary, error) {
	summary := DatasetSummary{PerLabel: map[string]int{}}

	data, err := os.ReadFile(path)
	if err != nil {
		return summary, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []chat.Conversation
	if err := json.Unmarshal(data, &records); err != nil {
		return summary, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i, record := range records {
		if err := validateRecord(record, baseDir); err != nil {
			return summary, fmt.Errorf("record %d: %w", i, err)
		}
		summary.PerLabel[reportType(record.Messages[1].Text())]++
	}
	summary.Records = len(records)
	return summary, nil
}

func validateRecord(record chat.Conversation, baseDir string) error {
	if len(record.Messages) != 2 {
		return fmt.Errorf("expected 2 messages, got %d", len(record.Messages))
	}
	user, assistant := record.Messages[0], record.Messages[1]
	if user.Role != chat.RoleUser || assistant.Role != chat.RoleAssistant {
		return fmt.Errorf("expected user then assistant, got %s then %s", user.Role, assistant.Role)
	}

	images := user.Images()
	if len(images) != 1 {
		return fmt.Errorf("user message must reference exactly one image, got %d", len(images))
	}
	if strings.TrimSpace(user.Text()) == "" {
		return fmt.Errorf("user message has no instruction text")
	}
	if strings.TrimSpace(assistant.Text()) == "" {
		return fmt.Errorf("assistant message has no answer text")
	}
	if len(assistant.Images()) != 0 {
		return fmt.Errorf("assistant message must not reference images")
	}

	imagePath := filepath.FromSlash(images[0])
	if !filepath.IsAbs(imagePath) && baseDir != "" {
		imagePath = filepath.Join(baseDir, imagePath)
	}
	if _, err := os.Stat(imagePath); err != nil {
		return fmt.Errorf("image %s: %w", images[0], err)
	}
	return nil
}

// reportType extracts the "Type:" field of a report; "Clean" when the report says no degradation
func reportType(report string) string {
	for _, line := range strings.Split(report, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if value, ok := strings.CutPrefix(line, "Type:"); ok {
			value = strings.TrimSpace(value)
			if value == "None" {
				return "Clean"
			}
			return value
		}
	}
	return "unknown"
}
