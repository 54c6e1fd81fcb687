package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

const ModelTypeRandomForest = "random_forest"

// LoadModel reads the artifact header to pick the model implementation and
// then loads the artifact into it.
func LoadModel(path string) (MLModel, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var header struct {
		ModelType string `json:"model_type"`
	}
	if err := json.Unmarshal(payload, &header); err != nil {
		return nil, fmt.Errorf("decode model header: %w", err)
	}

	switch header.ModelType {
	case ModelTypeRandomForest:
		model := &RandomForest{}
		if err := model.decode(payload); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", header.ModelType)
	}
}
