// Package domain models the crop water-requirement dataset and the artifacts
// produced by training on it.
//
// # Data Source
//
// The training table is a CSV export with one row per observation and exactly
// these columns:
//
//	CROP TYPE, SOIL TYPE, REGION, WEATHER CONDITION, TEMPERATURE, WATER REQUIREMENT
//
// Categorical columns are upper-case labels such as "BANANA", "DRY",
// "SEMI ARID" or "SUNNY". They are encoded as-is; no case folding is applied,
// so "sunny" and "SUNNY" are distinct categories.
//
// Temperature format:
//
//	"<low>-<high>" in whole degrees Celsius, e.g. "20-30".
//	The feature value is the arithmetic midpoint: "20-30" → 25.
//	Anything else (a single number, a decimal bound, a second hyphen) is a
//	[DataFormatError] and aborts the training run.
//
// Water requirement:
//
//	A non-negative decimal in the dataset's own unit (millimetres per day in
//	the published table). Values more than three standard deviations from the
//	column mean are treated as recording errors and dropped before training.
//
// # Artifacts
//
// A training run produces four named blobs: the gob-encoded model, the
// gob-encoded encoder/scaler bundle, model_info.json and unique_crops.json.
// The serving layer only reads them; see [ArtifactNotFoundError] for the
// "train first" case.
//
// # Feature Order
//
// Feature rows are always assembled in [FeatureNames] order. Training and
// inference share the same row builder, so the column order persisted with the
// model cannot drift from the order used to query it.
package domain
