package chat

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPartMarshalEmitsOnlyActiveVariant(t *testing.T) {
	tests := []struct {
		name     string
		part     Part
		expected string
	}{
		{name: "image", part: ImagePart("dataset/Denoise/BSD400/1.png"), expected: `{"type":"image","image":"dataset/Denoise/BSD400/1.png"}`},
		{name: "text", part: TextPart("a < b"), expected: `{"type":"text","text":"a < b"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.part)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.expected {
				t.Errorf("Marshal() = %s, want %s", data, tt.expected)
			}
		})
	}
}

func TestPartMarshalRejectsZeroValue(t *testing.T) {
	if _, err := json.Marshal(Part{}); err == nil {
		t.Fatal("expected error for zero-value part")
	}
}

func TestPartUnmarshalValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		want    Part
	}{
		{name: "image", input: `{"type":"image","image":"a.png"}`, want: ImagePart("a.png")},
		{name: "empty text is allowed", input: `{"type":"text","text":""}`, want: TextPart("")},
		{name: "unknown type", input: `{"type":"video","video":"a.mp4"}`, wantErr: true},
		{name: "image without payload", input: `{"type":"image","text":"oops"}`, wantErr: true},
		{name: "text without payload", input: `{"type":"text"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Part
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Unmarshal(%s) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Unmarshal(%s) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestConversationRecordFormat(t *testing.T) {
	record := Conversation{Messages: []Message{
		UserMessage(ImagePart("x/1.png"), TextPart("Analyze")),
		AssistantMessage(TextPart("- Degradation Detected: No")),
	}}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	expected := `{"messages":[{"role":"user","content":[{"type":"image","image":"x/1.png"},{"type":"text","text":"Analyze"}]},` +
		`{"role":"assistant","content":[{"type":"text","text":"- Degradation Detected: No"}]}]}`
	if string(data) != expected {
		t.Errorf("Marshal() =\n%s\nwant\n%s", data, expected)
	}

	var decoded Conversation
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got := decoded.Messages[0].Images(); len(got) != 1 || got[0] != "x/1.png" {
		t.Errorf("Images() = %v", got)
	}
	if got := decoded.Messages[1].Text(); !strings.HasPrefix(got, "- Degradation Detected") {
		t.Errorf("Text() = %q", got)
	}
}
