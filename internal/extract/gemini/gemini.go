// Package gemini reads document fields with a Gemini vision model.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/kaptinlin/jsonrepair"
	"google.golang.org/api/option"

	"github.com/m3rciful/insurebot/internal/extract"
	"github.com/m3rciful/insurebot/internal/session"
)

const defaultModel = "gemini-1.5-flash"

const passportInstruction = `You read identity documents. Extract the holder's given name and surname
from the passport photo. Return only JSON: {"first_name": string, "last_name": string}.
Use the first given name only. Use an empty string for any value you cannot read.`

const vehicleInstruction = `You read vehicle registration documents. Extract the vehicle make and model
from the photo. Return only JSON: {"make": string, "model": string}.
Use an empty string for any value you cannot read.`

// Engine implements extract.Extractor on top of the Gemini API.
type Engine struct {
	APIKey string
	Model  string
}

var _ extract.Extractor = (*Engine)(nil)

// New returns an Engine; model falls back to a flash vision model.
func New(apiKey, model string) (*Engine, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: GEMINI_API_KEY is empty")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultModel
	}
	return &Engine{APIKey: apiKey, Model: model}, nil
}

type passportFields struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type vehicleFields struct {
	Make  string `json:"make"`
	Model string `json:"model"`
}

// ExtractPassport asks the model for the holder's names.
func (e *Engine) ExtractPassport(ctx context.Context, image []byte) (session.Passport, error) {
	txt, err := e.ask(ctx, passportInstruction, image)
	if err != nil {
		return session.Passport{}, err
	}
	var out passportFields
	if err := decodeFields(txt, &out); err != nil {
		return session.Passport{}, err
	}
	return extract.Passport(out.FirstName, out.LastName)
}

// ExtractVehicle asks the model for make and model.
func (e *Engine) ExtractVehicle(ctx context.Context, image []byte) (session.Vehicle, error) {
	txt, err := e.ask(ctx, vehicleInstruction, image)
	if err != nil {
		return session.Vehicle{}, err
	}
	var out vehicleFields
	if err := decodeFields(txt, &out); err != nil {
		return session.Vehicle{}, err
	}
	return extract.Vehicle(out.Make, out.Model)
}

func (e *Engine) ask(ctx context.Context, instruction string, image []byte) (string, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", fmt.Errorf("gemini: new client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(instruction)},
	}

	resp, err := m.GenerateContent(ctx,
		genai.Text("Return the JSON for this document."),
		&genai.Blob{MIMEType: http.DetectContentType(image), Data: image},
	)
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	return firstText(resp), nil
}

// decodeFields parses model output, repairing near-JSON such as fenced or
// truncated objects. Unreadable output counts as a failed extraction.
func decodeFields(txt string, out any) error {
	txt = stripCodeFences(strings.TrimSpace(txt))
	if txt == "" {
		return extract.ErrExtractionFailed
	}
	if err := json.Unmarshal([]byte(txt), out); err == nil {
		return nil
	}
	repaired, err := jsonrepair.JSONRepair(txt)
	if err != nil {
		return fmt.Errorf("%w: unreadable model output", extract.ErrExtractionFailed)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("%w: unreadable model output", extract.ErrExtractionFailed)
	}
	return nil
}

func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
