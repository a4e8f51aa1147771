package gemini

import (
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidates(t *testing.T) {
	_, err := New("", "", "")
	require.Error(t, err)

	e, err := New("key", " ", " be brief ")
	require.NoError(t, err)
	assert.Equal(t, defaultModel, e.Model)
	assert.Equal(t, "be brief", e.System)
}

func TestAppendTextJoinsChunks(t *testing.T) {
	var b strings.Builder
	appendText(&b, &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("Policy "), &genai.Blob{MIMEType: "image/png"}}}},
	}})
	appendText(&b, nil)
	appendText(&b, &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("#42")}}},
	}})
	assert.Equal(t, "Policy #42", b.String())
}
