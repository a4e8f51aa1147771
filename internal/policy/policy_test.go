package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/metrics"
	"github.com/m3rciful/insurebot/internal/session"
)

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt(Request{HolderName: "Jane Doe", VehicleMake: "Toyota", VehicleModel: "Corolla", Price: 100})
	want := "Instruction: Do not include disclaimers, introductions, or explanations. " +
		"Only output the requested policy content. " +
		"Generate very short insurance policy document on name Jane Doe on the vehicle Corolla made by Toyota, insurance price is 100"
	assert.Equal(t, want, got)
}

func TestNewRequest(t *testing.T) {
	s := &session.Session{
		Passport: &session.Passport{FirstName: "Jane", LastName: "Doe"},
		Vehicle:  &session.Vehicle{Make: "Toyota", Model: "Corolla"},
	}
	req, err := NewRequest(s, 250)
	require.NoError(t, err)
	assert.Equal(t, Request{HolderName: "Jane Doe", VehicleMake: "Toyota", VehicleModel: "Corolla", Price: 250}, req)

	_, err = NewRequest(&session.Session{}, 100)
	assert.Error(t, err)
}

func TestGenerationErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &GenerationError{Provider: "ollama", Status: 500, Body: "boom"})
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, "wrapped: ollama generation failed (500): boom", err.Error())
	assert.Equal(t, "gemini generation failed: quota", (&GenerationError{Provider: "gemini", Body: "quota"}).Error())
	assert.False(t, errors.Is(errors.New("boom"), ErrGenerationFailed))
}

type generatorFunc func(ctx context.Context, req Request) (string, error)

func (f generatorFunc) GeneratePolicy(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

func TestInstrumentTagsOperation(t *testing.T) {
	m, err := metrics.New("policy_test", prometheus.NewRegistry())
	require.NoError(t, err)

	var opID string
	gen := Instrument(generatorFunc(func(ctx context.Context, req Request) (string, error) {
		opID = logger.MetaFrom(ctx).OpID
		return "policy", nil
	}), "ollama", "llama3", m)

	text, err := gen.GeneratePolicy(context.Background(), Request{Price: 100})
	require.NoError(t, err)
	assert.Equal(t, "policy", text)
	assert.Len(t, opID, 36)

	failing := Instrument(generatorFunc(func(context.Context, Request) (string, error) {
		return "partial", &GenerationError{Provider: "ollama", Body: "down"}
	}), "ollama", "llama3", m)
	text, err = failing.GeneratePolicy(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Empty(t, text)

	expected := `
# HELP policy_test_generations_total Policy generation attempts, by provider and outcome.
# TYPE policy_test_generations_total counter
policy_test_generations_total{outcome="failed",provider="ollama"} 1
policy_test_generations_total{outcome="ok",provider="ollama"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(expected), "policy_test_generations_total"))
}
