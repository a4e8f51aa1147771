package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/insurebot/internal/extract"
)

func TestNewValidates(t *testing.T) {
	_, err := New("  ", "")
	require.Error(t, err)

	e, err := New("key", "")
	require.NoError(t, err)
	assert.Equal(t, defaultModel, e.Model)
}

func TestDecodeFields(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want passportFields
	}{
		{"plain", `{"first_name":"Jane","last_name":"Doe"}`, passportFields{"Jane", "Doe"}},
		{"fenced", "```json\n{\"first_name\":\"Jane\",\"last_name\":\"Doe\"}\n```", passportFields{"Jane", "Doe"}},
		{"trailing comma", `{"first_name":"Jane","last_name":"Doe",}`, passportFields{"Jane", "Doe"}},
		{"single quotes", `{'first_name': 'Jane', 'last_name': 'Doe'}`, passportFields{"Jane", "Doe"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got passportFields
			require.NoError(t, decodeFields(tc.in, &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeFieldsEmptyOutput(t *testing.T) {
	var got vehicleFields
	assert.ErrorIs(t, decodeFields("   ", &got), extract.ErrExtractionFailed)
}

func TestFirstText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: nil},
		{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"make":"Audi"}`)}}},
	}}
	assert.Equal(t, `{"make":"Audi"}`, firstText(resp))
	assert.Equal(t, "", firstText(nil))
}
