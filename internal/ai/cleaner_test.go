package ai

import "testing"

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "- Degradation Detected: No", expected: "- Degradation Detected: No"},
		{name: "chat markers", input: "<|im_start|>assistant\nanswer<|im_end|>", expected: "assistant\nanswer"},
		{name: "sentencepiece markers", input: "<s> answer </s><pad><pad>", expected: "answer"},
		{name: "unknown token", input: "a<unk>b", expected: "ab"},
		{name: "keeps ordinary angle brackets", input: "size < 5 and > 2", expected: "size < 5 and > 2"},
		{name: "only tokens", input: "<|endoftext|>\n", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanOutput(tt.input); got != tt.expected {
				t.Errorf("CleanOutput(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestReportTemplates(t *testing.T) {
	if got := DetectedReport("Noised"); got != "- Degradation Detected: Yes\n- Type: Noised\n- Severity: Medium\n- Description: Detected Noised artifacts in the image." {
		t.Errorf("DetectedReport() = %q", got)
	}
	if got := CleanReport(); got != "- Degradation Detected: No\n- Type: None\n- Severity: None\n- Description: The image is clear without degradation." {
		t.Errorf("CleanReport() = %q", got)
	}
}
