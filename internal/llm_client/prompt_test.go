package llm_client

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPromptPlaceholders(t *testing.T) {
	t.Run("missing context uses literal placeholders", func(t *testing.T) {
		prompt := buildPrompt("result block", "English", nil, nil)
		assert.Contains(t, prompt, "Location: not specified")
		assert.Contains(t, prompt, "Current Temperature: not available")
	})

	t.Run("empty city string uses the placeholder too", func(t *testing.T) {
		empty := ""
		prompt := buildPrompt("result block", "English", nil, &empty)
		assert.Contains(t, prompt, "Location: not specified")
	})

	t.Run("resolved context is rendered", func(t *testing.T) {
		temp := 24.5
		city := "Bengaluru"
		prompt := buildPrompt("result block", "Hindi", &temp, &city)
		assert.Contains(t, prompt, "Location: Bengaluru")
		assert.Contains(t, prompt, "Current Temperature: 24.5°C")
		assert.Contains(t, prompt, "Provide the report in Hindi language")
		assert.Contains(t, prompt, "result block")
	})
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"markdown fence wrapper", "```markdown\n# Report\n```", "\n# Report\n"},
		{"plain fence wrapper", "```\ntext\n```", "\ntext\n"},
		{"no fences", "# Report", "# Report"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripCodeFences(tt.in)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "```")
		})
	}
}

func TestDecodableImageFormat(t *testing.T) {
	t.Run("valid png", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
		format, ok := decodableImageFormat(buf.Bytes())
		assert.True(t, ok)
		assert.Equal(t, "png", format)
	})

	t.Run("garbage bytes", func(t *testing.T) {
		_, ok := decodableImageFormat([]byte("definitely not an image"))
		assert.False(t, ok)
	})

	t.Run("empty input", func(t *testing.T) {
		_, ok := decodableImageFormat(nil)
		assert.False(t, ok)
	})
}

func TestBuildPromptKeepsSectionHeadings(t *testing.T) {
	prompt := buildPrompt("r", "English", nil, nil)
	for _, section := range []string{
		"1. Prediction Summary",
		"2. Clinical Observations",
		"3. Environmental Risk Analysis",
		"4. Differential Diagnosis",
		"5. Management Recommendations",
		"6. Follow-up Protocol",
	} {
		assert.True(t, strings.Contains(prompt, section), "missing section %q", section)
	}
}
