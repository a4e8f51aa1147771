package extract

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

	"github.com/m3rciful/insurebot/core/metrics"
	"github.com/m3rciful/insurebot/internal/session"
)

func TestPassportValidation(t *testing.T) {
	p, err := Passport(" Jane ", "Doe")
	require.NoError(t, err)
	assert.Equal(t, session.Passport{FirstName: "Jane", LastName: "Doe"}, p)

	_, err = Passport("Jane", "  ")
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestVehicleValidation(t *testing.T) {
	v, err := Vehicle("Toyota", "Corolla")
	require.NoError(t, err)
	assert.Equal(t, session.Vehicle{Make: "Toyota", Model: "Corolla"}, v)

	_, err = Vehicle("", "Corolla")
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "failed", Outcome(fmt.Errorf("wrap: %w", ErrExtractionFailed)))
	assert.Equal(t, "error", Outcome(errors.New("dial tcp: refused")))
	assert.Equal(t, "passport", DocumentPassport.String())
	assert.Equal(t, "vehicle", DocumentVehicle.String())
	assert.Equal(t, "unknown", Document(0).String())
}

type stubExtractor struct {
	passport session.Passport
	vehicle  session.Vehicle
	err      error
}

func (s stubExtractor) ExtractPassport(context.Context, []byte) (session.Passport, error) {
	return s.passport, s.err
}

func (s stubExtractor) ExtractVehicle(context.Context, []byte) (session.Vehicle, error) {
	return s.vehicle, s.err
}

func TestInstrumentRecordsOutcomes(t *testing.T) {
	m, err := metrics.New("extract_test", prometheus.NewRegistry())
	require.NoError(t, err)

	ok := Instrument(stubExtractor{passport: session.Passport{FirstName: "A", LastName: "B"}}, "stub", m)
	p, err := ok.ExtractPassport(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "A", p.FirstName)

	failed := Instrument(stubExtractor{err: ErrExtractionFailed}, "stub", m)
	_, err = failed.ExtractVehicle(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, ErrExtractionFailed)

	broken := Instrument(stubExtractor{err: errors.New("timeout")}, "stub", m)
	_, err = broken.ExtractVehicle(context.Background(), []byte("img"))
	require.Error(t, err)

	expected := `
# HELP extract_test_extractions_total Document extraction attempts, by document and outcome.
# TYPE extract_test_extractions_total counter
extract_test_extractions_total{document="passport",outcome="ok"} 1
extract_test_extractions_total{document="vehicle",outcome="error"} 1
extract_test_extractions_total{document="vehicle",outcome="failed"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(expected), "extract_test_extractions_total"))
}
