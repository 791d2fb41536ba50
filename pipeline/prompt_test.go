package pipeline

import (
	"errors"
	"strings"
	"testing"

	"thumbgen/imagegen"
)

func TestBuildPrompt_TextToImage(t *testing.T) {
	tests := []struct {
		name   string
		fields PromptFields
		want   string
	}{
		{
			name:   "subject only",
			fields: PromptFields{OriginalPrompt: "a cat astronaut"},
			want: "Create a YouTube thumbnail in STRICT 16:9 aspect ratio (1920x1080 dimensions). " +
				"Main subject: a cat astronaut. " + textToImageSuffix,
		},
		{
			name: "all fields",
			fields: PromptFields{
				OriginalPrompt: "a cat astronaut",
				CustomPrompt:   "no stars",
				Category:       "Science",
				ThumbnailStyle: "Minimalist",
				Theme:          "Space",
				Mood:           "Calm",
				PrimaryColor:   "Blue",
				IncludeText:    true,
				TextStyle:      "Bold",
			},
			want: textToImageIntro +
				"Main subject: a cat astronaut. " +
				"Additional requirements: no stars. " +
				"Style requirements: Science style, Minimalist thumbnail, with Space theme, Calm mood, " +
				"dominant Blue color palette, featuring Bold text overlay. " +
				textToImageSuffix,
		},
		{
			name:   "text overlay without style",
			fields: PromptFields{OriginalPrompt: "x", IncludeText: true},
			want:   textToImageIntro + "Main subject: x. Style requirements: with text overlay. " + textToImageSuffix,
		},
		{
			name:   "style only",
			fields: PromptFields{Mood: "Dark"},
			want:   textToImageIntro + "Style requirements: Dark mood. " + textToImageSuffix,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildPrompt(tt.fields, imagegen.ModeTextToImage)
			if err != nil {
				t.Fatalf("BuildPrompt: %v", err)
			}
			if got != tt.want {
				t.Errorf("got  %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestBuildPrompt_ImageToImage(t *testing.T) {
	t.Run("objective with tweaks", func(t *testing.T) {
		got, err := BuildPrompt(PromptFields{
			OriginalPrompt: "put him on a beach",
			Category:       "Travel",
			Mood:           "Happy",
			Theme:          "Tropical",
			PrimaryColor:   "Orange",
			ThumbnailStyle: "Cinematic",
			IncludeText:    true,
			CustomPrompt:   "keep the hat",
		}, imagegen.ModeImageToImage)
		if err != nil {
			t.Fatalf("BuildPrompt: %v", err)
		}
		want := "Primary objective: put him on a beach. Use the reference image provided as the foundation " +
			"and modify it to fulfill this main requirement. " +
			"Secondary style adjustments: adapt it for Travel content style, adjust the mood to be happy, " +
			"apply tropical visual theme, emphasize orange color tones, render in cinematic style, add text overlay. " +
			"Additional requirements: keep the hat. " +
			imageToImageSuffix
		if got != want {
			t.Errorf("got  %q\nwant %q", got, want)
		}
	})

	t.Run("no objective", func(t *testing.T) {
		got, err := BuildPrompt(PromptFields{IncludeText: true, TextStyle: "Neon"}, imagegen.ModeImageToImage)
		if err != nil {
			t.Fatalf("BuildPrompt: %v", err)
		}
		if !strings.HasPrefix(got, imageToImageDefaultIntro) {
			t.Errorf("missing default intro: %q", got)
		}
		if !strings.Contains(got, "Secondary style adjustments: add neon text overlay. ") {
			t.Errorf("missing text tweak: %q", got)
		}
		if !strings.HasSuffix(got, imageToImageSuffix) {
			t.Errorf("missing suffix: %q", got)
		}
	})

	t.Run("empty fields are valid", func(t *testing.T) {
		got, err := BuildPrompt(PromptFields{}, imagegen.ModeImageToImage)
		if err != nil {
			t.Fatalf("BuildPrompt: %v", err)
		}
		if got != imageToImageDefaultIntro+imageToImageSuffix {
			t.Errorf("got %q", got)
		}
	})
}

func TestBuildPrompt_EmptyTextToImage(t *testing.T) {
	for _, fields := range []PromptFields{{}, {OriginalPrompt: "   ", TextStyle: "Bold"}} {
		if _, err := BuildPrompt(fields, imagegen.ModeTextToImage); !errors.Is(err, ErrEmptyPrompt) {
			t.Errorf("fields %+v: expected ErrEmptyPrompt, got %v", fields, err)
		}
	}
}

func TestPromptFields_IsZero(t *testing.T) {
	if !(PromptFields{}).IsZero() {
		t.Error("zero value should report IsZero")
	}
	if (PromptFields{Mood: "Calm"}).IsZero() {
		t.Error("populated fields should not report IsZero")
	}
}
