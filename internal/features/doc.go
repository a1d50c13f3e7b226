// Package features turns raw dataset records into the numeric feature matrix
// fed to the regressor, and owns the encoders and scaler fitted on the way.
//
// The fitted [Bundle] is persisted next to the model. Training and inference
// both assemble rows through [Bundle.EncodeRecord], so encoder output and
// matrix column order always agree with domain.FeatureNames.
package features
