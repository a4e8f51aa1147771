package mindee

import (
	"encoding/json"
	"strings"
)

type predictResponse[P any] struct {
	Document document[P] `json:"document"`
}

type document[P any] struct {
	ID        string `json:"id"`
	Inference struct {
		Prediction P `json:"prediction"`
	} `json:"inference"`
}

type jobResponse struct {
	Job struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Error  struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"job"`
	Document *document[generatedPrediction] `json:"document"`
}

type stringField struct {
	Value *string `json:"value"`
}

func (f stringField) String() string {
	if f.Value == nil {
		return ""
	}
	return strings.TrimSpace(*f.Value)
}

type passportPrediction struct {
	GivenNames []stringField `json:"given_names"`
	Surname    stringField   `json:"surname"`
}

// generatedPrediction holds custom model fields, each either a single
// value object or a list of them.
type generatedPrediction map[string]json.RawMessage

func (p generatedPrediction) value(name string) string {
	raw, ok := p[name]
	if !ok {
		return ""
	}
	var single stringField
	if err := json.Unmarshal(raw, &single); err == nil {
		return single.String()
	}
	var list []stringField
	if err := json.Unmarshal(raw, &list); err != nil {
		return ""
	}
	parts := make([]string, 0, len(list))
	for _, f := range list {
		if v := f.String(); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
