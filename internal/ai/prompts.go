// prompts.go - Fixed prompts and report templates for the degradation model

package ai

import "fmt"

// AnalysisPrompt is sent with every image at inference time.
const AnalysisPrompt = "Analyze this image technically. Does this image have any quality degradation? " +
	"Check for Blur, Gaussian Noise, JPEG Compression artifacts, or Low Resolution. " +
	"Answer in this format:\n" +
	"- Degradation Detected: [Yes/No]\n" +
	"- Type: [Type or None]\n" +
	"- Severity: [Low/Medium/High]\n" +
	"- Description: [Brief explanation]"

// DatasetInstruction is the user text of every training record.
const DatasetInstruction = "Analyze the image degradation. Output the result in the strict report format."

// DetectedMarker is the substring that marks a positive report.
const DetectedMarker = "Degradation Detected: Yes"

// CleanReport is the assistant answer for an undegraded image.
func CleanReport() string {
	return "- Degradation Detected: No\n" +
		"- Type: None\n" +
		"- Severity: None\n" +
		"- Description: The image is clear without degradation."
}

// DetectedReport is the assistant answer for an image degraded by label.
func DetectedReport(label string) string {
	return fmt.Sprintf("- Degradation Detected: Yes\n"+
		"- Type: %s\n"+
		"- Severity: Medium\n"+
		"- Description: Detected %s artifacts in the image.", label, label)
}
