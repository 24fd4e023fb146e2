// message.go - Conversation messages shared by inference requests and training records

package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartType is the tag of a content part.
type PartType string

const (
	PartImage PartType = "image"
	PartText  PartType = "text"
)

// Part is one content element of a message: either an image reference or a text span.
// Build parts with ImagePart or TextPart so the payload always matches the tag.
type Part struct {
	kind  PartType
	value string
}

// ImagePart references an image by file path.
func ImagePart(path string) Part {
	return Part{kind: PartImage, value: path}
}

// TextPart carries a text span.
func TextPart(text string) Part {
	return Part{kind: PartText, value: text}
}

// Type returns the part tag.
func (p Part) Type() PartType { return p.kind }

// Image returns the image path and whether the part is an image.
func (p Part) Image() (string, bool) {
	return p.value, p.kind == PartImage
}

// Text returns the text and whether the part is text.
func (p Part) Text() (string, bool) {
	return p.value, p.kind == PartText
}

type imageWire struct {
	Type  PartType `json:"type"`
	Image string   `json:"image"`
}

type textWire struct {
	Type PartType `json:"type"`
	Text string   `json:"text"`
}

// MarshalJSON emits only the fields of the active variant.
func (p Part) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case PartImage:
		return marshalNoEscape(imageWire{Type: PartImage, Image: p.value})
	case PartText:
		return marshalNoEscape(textWire{Type: PartText, Text: p.value})
	default:
		return nil, fmt.Errorf("chat: cannot encode part with type %q", p.kind)
	}
}

// UnmarshalJSON accepts {"type":"image","image":...} or {"type":"text","text":...}.
func (p *Part) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type  PartType `json:"type"`
		Image *string  `json:"image"`
		Text  *string  `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Type {
	case PartImage:
		if raw.Image == nil {
			return fmt.Errorf("chat: image part without \"image\" field")
		}
		*p = ImagePart(*raw.Image)
	case PartText:
		if raw.Text == nil {
			return fmt.Errorf("chat: text part without \"text\" field")
		}
		*p = TextPart(*raw.Text)
	default:
		return fmt.Errorf("chat: unknown part type %q", raw.Type)
	}
	return nil
}

// Message is a single turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content []Part `json:"content"`
}

// UserMessage builds a user turn.
func UserMessage(parts ...Part) Message {
	return Message{Role: RoleUser, Content: parts}
}

// AssistantMessage builds an assistant turn.
func AssistantMessage(parts ...Part) Message {
	return Message{Role: RoleAssistant, Content: parts}
}

// Images returns the image paths referenced by the message, in order.
func (m Message) Images() []string {
	var paths []string
	for _, part := range m.Content {
		if path, ok := part.Image(); ok {
			paths = append(paths, path)
		}
	}
	return paths
}

// Text joins the text parts of the message with newlines.
func (m Message) Text() string {
	var texts []string
	for _, part := range m.Content {
		if text, ok := part.Text(); ok {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, "\n")
}

// Conversation is one training record: {"messages":[...]}.
type Conversation struct {
	Messages []Message `json:"messages"`
}

// marshalNoEscape keeps '<', '>' and '&' literal so reports stay readable in the JSON files.
func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
