// Package imagegen requests image variants from a generation provider.
//
// atoms.go contains pure utility functions with no dependencies.
package imagegen

import (
	"bytes"
	"strings"
)

// Unit count limits for a single request.
const (
	MinUnitCount     = 1
	MaxUnitCount     = 4
	DefaultUnitCount = 4
)

// ClampUnitCount bounds a requested unit count to [MinUnitCount, MaxUnitCount].
// Zero means "not specified" and yields DefaultUnitCount.
//
// Example:
//
//	ClampUnitCount(0)  // 4
//	ClampUnitCount(-2) // 1
//	ClampUnitCount(9)  // 4
func ClampUnitCount(n int) int {
	switch {
	case n == 0:
		return DefaultUnitCount
	case n < MinUnitCount:
		return MinUnitCount
	case n > MaxUnitCount:
		return MaxUnitCount
	default:
		return n
	}
}

// DefaultMimeType is assumed when no known signature matches.
const DefaultMimeType = "image/jpeg"

var mimeSignatures = []struct {
	mimeType  string
	signature []byte
}{
	{"image/jpeg", []byte{0xFF, 0xD8, 0xFF}},
	{"image/png", []byte{0x89, 0x50, 0x4E, 0x47}},
	{"image/gif", []byte{0x47, 0x49, 0x46}},
	{"image/webp", []byte{0x52, 0x49, 0x46, 0x46}},
}

// DetectMimeType identifies an image encoding from its leading bytes.
// Signatures are checked in priority order (JPEG, PNG, GIF, WebP); anything
// else, including short or empty input, is reported as DefaultMimeType.
func DetectMimeType(data []byte) string {
	for _, sig := range mimeSignatures {
		if bytes.HasPrefix(data, sig.signature) {
			return sig.mimeType
		}
	}
	return DefaultMimeType
}

// ExtensionForMimeType returns the file extension for a Content-Type,
// ignoring parameters. Unknown image/* types map to ".png"; non-image types
// return "".
func ExtensionForMimeType(contentType string) string {
	lower := strings.ToLower(contentType)
	if idx := strings.Index(lower, ";"); idx != -1 {
		lower = lower[:idx]
	}
	lower = strings.TrimSpace(lower)

	switch lower {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		if strings.HasPrefix(lower, "image/") {
			return ".png"
		}
		return ""
	}
}

// IsImageMimeType reports whether contentType names an image encoding.
// An empty value is treated as unknown and accepted.
func IsImageMimeType(contentType string) bool {
	if contentType == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// IsAzureEndpoint checks if the given endpoint URL is an Azure OpenAI endpoint.
//
// Example:
//
//	IsAzureEndpoint("https://myresource.openai.azure.com")            // true
//	IsAzureEndpoint("https://myresource.cognitiveservices.azure.com") // true
//	IsAzureEndpoint("https://api.openai.com")                         // false
func IsAzureEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	lower := strings.ToLower(endpoint)
	return strings.Contains(lower, "openai.azure.com") ||
		strings.Contains(lower, "cognitiveservices.azure.com")
}

const referenceInstructions = `You are a thumbnail creator that modifies existing images. CRITICAL INSTRUCTIONS:
1. Use the provided reference image as the primary foundation - preserve ALL key visual elements
2. Keep the same characters, objects, faces, and overall composition from the original
3. Only apply the requested style modifications as overlays or enhancements
4. The original subject matter and recognizable elements must remain clearly visible
5. Think of this as "restyling" the existing image, not creating something new
6. Generate the image in 16:9 widescreen aspect ratio format suitable for thumbnails`

// BuildReferencePrompt wraps a modification request in the instructions that
// keep the provider anchored to the reference image. Every image-to-image
// submission goes through it.
func BuildReferencePrompt(prompt string) string {
	return referenceInstructions +
		"\n\nModification request: " + prompt +
		"\n\nIMPORTANT: Start with the provided reference image and apply only the requested " +
		"modifications while keeping all original elements intact and recognizable. " +
		"Create the final image in 16:9 widescreen thumbnail format."
}

// truncateText shortens text for log fields.
func truncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return text[:maxLen]
	}
	return text[:maxLen-3] + "..."
}
