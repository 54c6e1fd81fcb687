package ml

import "errors"

var (
	ErrNotTrained      = errors.New("model not trained")
	ErrFeatureMismatch = errors.New("model feature order does not match FeatureNames")
)

// Classifier maps one feature vector, ordered as FeatureNames, to a
// burnout-risk label and the model's confidence in it.
type Classifier interface {
	Predict(features []float64) (string, float64, error)
}

type MLModel interface {
	Classifier
	Train(features [][]float64, labels []string) error
	Save(path string) error
	Load(path string) error
}
