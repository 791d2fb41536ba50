package pipeline

import (
	"strings"

	"thumbgen/imagegen"
)

// PromptFields are the structured style answers a request may carry.
// Empty fields are omitted from the built prompt.
type PromptFields struct {
	Category       string
	Mood           string
	Theme          string
	PrimaryColor   string
	IncludeText    bool
	TextStyle      string
	ThumbnailStyle string
	CustomPrompt   string
	OriginalPrompt string
}

// IsZero reports whether no field is set.
func (f PromptFields) IsZero() bool {
	return f == PromptFields{}
}

const (
	textToImageIntro  = "Create a YouTube thumbnail in STRICT 16:9 aspect ratio (1920x1080 dimensions). "
	textToImageSuffix = "CRITICAL: Must be exactly 16:9 aspect ratio, widescreen format, horizontal layout, " +
		"YouTube thumbnail proportions (1920x1080). High quality, professional, eye-catching, " +
		"clean composition optimized for YouTube thumbnail viewing."

	imageToImageDefaultIntro = "Create a thumbnail based on the reference image provided, maintaining the core " +
		"visual elements, characters, objects, and composition from the original image. "
	imageToImageSuffix = "IMPORTANT: Focus primarily on fulfilling the main objective while preserving " +
		"recognizable elements from the reference image. Apply style adjustments as enhancements " +
		"that support the main goal. Ensure the result is suitable as a thumbnail - eye-catching, " +
		"clear, and professional."
)

// BuildPrompt renders fields into the instruction text sent to the
// provider. Text-to-image prompts enforce the 16:9 thumbnail frame;
// image-to-image prompts lead with the user's objective and treat style
// fields as secondary adjustments. A text-to-image request with no subject,
// custom requirement or style returns ErrEmptyPrompt.
func BuildPrompt(fields PromptFields, mode imagegen.Mode) (string, error) {
	fields = trimFields(fields)
	if mode == imagegen.ModeImageToImage {
		return buildImageToImagePrompt(fields), nil
	}
	if fields.OriginalPrompt == "" && fields.CustomPrompt == "" && len(textToImageParts(fields)) == 0 {
		return "", ErrEmptyPrompt
	}
	return buildTextToImagePrompt(fields), nil
}

func buildTextToImagePrompt(f PromptFields) string {
	var b strings.Builder
	b.WriteString(textToImageIntro)
	if f.OriginalPrompt != "" {
		b.WriteString("Main subject: " + f.OriginalPrompt + ". ")
	}
	if f.CustomPrompt != "" {
		b.WriteString("Additional requirements: " + f.CustomPrompt + ". ")
	}
	if parts := textToImageParts(f); len(parts) > 0 {
		b.WriteString("Style requirements: " + strings.Join(parts, ", ") + ". ")
	}
	b.WriteString(textToImageSuffix)
	return b.String()
}

func textToImageParts(f PromptFields) []string {
	var parts []string
	if f.Category != "" {
		parts = append(parts, f.Category+" style")
	}
	if f.ThumbnailStyle != "" {
		parts = append(parts, f.ThumbnailStyle+" thumbnail")
	}
	if f.Theme != "" {
		parts = append(parts, "with "+f.Theme+" theme")
	}
	if f.Mood != "" {
		parts = append(parts, f.Mood+" mood")
	}
	if f.PrimaryColor != "" {
		parts = append(parts, "dominant "+f.PrimaryColor+" color palette")
	}
	if f.IncludeText {
		if f.TextStyle != "" {
			parts = append(parts, "featuring "+f.TextStyle+" text overlay")
		} else {
			parts = append(parts, "with text overlay")
		}
	}
	return parts
}

func buildImageToImagePrompt(f PromptFields) string {
	var b strings.Builder
	if f.OriginalPrompt != "" {
		b.WriteString("Primary objective: " + f.OriginalPrompt +
			". Use the reference image provided as the foundation and modify it to fulfill this main requirement. ")
	} else {
		b.WriteString(imageToImageDefaultIntro)
	}

	var tweaks []string
	if f.Category != "" {
		tweaks = append(tweaks, "adapt it for "+f.Category+" content style")
	}
	if f.Mood != "" {
		tweaks = append(tweaks, "adjust the mood to be "+strings.ToLower(f.Mood))
	}
	if f.Theme != "" {
		tweaks = append(tweaks, "apply "+strings.ToLower(f.Theme)+" visual theme")
	}
	if f.PrimaryColor != "" {
		tweaks = append(tweaks, "emphasize "+strings.ToLower(f.PrimaryColor)+" color tones")
	}
	if f.ThumbnailStyle != "" {
		tweaks = append(tweaks, "render in "+strings.ToLower(f.ThumbnailStyle)+" style")
	}
	if f.IncludeText {
		if f.TextStyle != "" {
			tweaks = append(tweaks, "add "+strings.ToLower(f.TextStyle)+" text overlay")
		} else {
			tweaks = append(tweaks, "add text overlay")
		}
	}
	if len(tweaks) > 0 {
		b.WriteString("Secondary style adjustments: " + strings.Join(tweaks, ", ") + ". ")
	}

	if f.CustomPrompt != "" {
		b.WriteString("Additional requirements: " + f.CustomPrompt + ". ")
	}
	b.WriteString(imageToImageSuffix)
	return b.String()
}

func trimFields(f PromptFields) PromptFields {
	return PromptFields{
		Category:       strings.TrimSpace(f.Category),
		Mood:           strings.TrimSpace(f.Mood),
		Theme:          strings.TrimSpace(f.Theme),
		PrimaryColor:   strings.TrimSpace(f.PrimaryColor),
		IncludeText:    f.IncludeText,
		TextStyle:      strings.TrimSpace(f.TextStyle),
		ThumbnailStyle: strings.TrimSpace(f.ThumbnailStyle),
		CustomPrompt:   strings.TrimSpace(f.CustomPrompt),
		OriginalPrompt: strings.TrimSpace(f.OriginalPrompt),
	}
}
