package imagegen

import (
	"strings"
	"testing"
)

func TestClampUnitCount(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 4},
		{-1, 1},
		{1, 1},
		{3, 3},
		{4, 4},
		{5, 4},
		{100, 4},
	}
	for _, tt := range tests {
		if got := ClampUnitCount(tt.in); got != tt.want {
			t.Errorf("ClampUnitCount(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}, "image/png"},
		{"gif", []byte("GIF89a"), "image/gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), "image/webp"},
		{"unknown defaults to jpeg", []byte{0x00, 0x01, 0x02, 0x03}, "image/jpeg"},
		{"empty defaults to jpeg", nil, "image/jpeg"},
		{"truncated png signature", []byte{0x89, 0x50}, "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMimeType(tt.data); got != tt.want {
				t.Errorf("DetectMimeType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtensionForMimeType(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/png", ".png"},
		{"image/jpeg", ".jpg"},
		{"IMAGE/JPEG; charset=binary", ".jpg"},
		{"image/gif", ".gif"},
		{"image/webp", ".webp"},
		{"image/x-icon", ".png"},
		{"text/plain", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtensionForMimeType(tt.contentType); got != tt.want {
			t.Errorf("ExtensionForMimeType(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}

func TestIsImageMimeType(t *testing.T) {
	if !IsImageMimeType("") || !IsImageMimeType("image/png") || !IsImageMimeType(" Image/WebP") {
		t.Error("expected image types (and unknown) to be accepted")
	}
	if IsImageMimeType("text/plain") || IsImageMimeType("application/json") {
		t.Error("expected non-image types to be rejected")
	}
}

func TestIsAzureEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"https://myresource.openai.azure.com", true},
		{"https://MYRESOURCE.OPENAI.AZURE.COM/", true},
		{"https://myresource.cognitiveservices.azure.com", true},
		{"https://api.openai.com/v1", false},
		{"http://localhost:1234", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsAzureEndpoint(tt.endpoint); got != tt.want {
			t.Errorf("IsAzureEndpoint(%q) = %v, want %v", tt.endpoint, got, tt.want)
		}
	}
}

func TestBuildReferencePrompt(t *testing.T) {
	got := BuildReferencePrompt("make it neon")

	for _, want := range []string{
		"preserve ALL key visual elements",
		"Modification request: make it neon",
		"Start with the provided reference image",
		"16:9 widescreen",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("BuildReferencePrompt() missing %q", want)
		}
	}
	if !strings.HasPrefix(got, "You are a thumbnail creator that modifies existing images.") {
		t.Errorf("BuildReferencePrompt() should start with the instruction block")
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		text   string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a long prompt", 10, "this is..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncateText(tt.text, tt.maxLen); got != tt.want {
			t.Errorf("truncateText(%q, %d) = %q, want %q", tt.text, tt.maxLen, got, tt.want)
		}
	}
}

func TestModeString(t *testing.T) {
	if ModeTextToImage.String() != "text-to-image" || ModeImageToImage.String() != "image-to-image" {
		t.Error("unexpected mode names")
	}
	if Mode(42).String() != "unknown" {
		t.Error("unexpected name for invalid mode")
	}
}
