package artifact

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/couchcryptid/crop-water-service/internal/domain"
	"github.com/couchcryptid/crop-water-service/internal/features"
	"github.com/couchcryptid/crop-water-service/internal/forest"
)

// Artifact names.
const (
	ModelName       = "crop_model.gob"
	EncodersName    = "encoders.gob"
	ModelInfoName   = "model_info.json"
	UniqueCropsName = "unique_crops.json"
)

// Set is one complete training output.
type Set struct {
	Model       *forest.Forest
	Encoders    *features.Bundle
	Info        domain.ModelInfo
	UniqueCrops []string
}

// Encode serializes every member of the set under its artifact name.
func Encode(set *Set) (map[string][]byte, error) {
	if set.Model == nil || set.Encoders == nil {
		return nil, errors.New("encode artifacts: model and encoders are required")
	}

	model, err := encodeGob(set.Model)
	if err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	encoders, err := encodeGob(set.Encoders)
	if err != nil {
		return nil, fmt.Errorf("encode encoders: %w", err)
	}
	info, err := json.MarshalIndent(set.Info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode model info: %w", err)
	}
	crops := set.UniqueCrops
	if crops == nil {
		crops = []string{}
	}
	uniqueCrops, err := json.MarshalIndent(crops, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode unique crops: %w", err)
	}

	return map[string][]byte{
		ModelName:       model,
		EncodersName:    encoders,
		ModelInfoName:   info,
		UniqueCropsName: uniqueCrops,
	}, nil
}

// Save encodes the set and writes it to the store in one PutAll.
func Save(ctx context.Context, store Store, set *Set) error {
	blobs, err := Encode(set)
	if err != nil {
		return err
	}
	return store.PutAll(ctx, blobs)
}

// Load reads and decodes a complete set from one committed version. Missing
// blobs surface as *domain.ArtifactNotFoundError.
func Load(ctx context.Context, store Store) (*Set, error) {
	blobs, err := store.GetAll(ctx, ModelName, EncodersName, ModelInfoName, UniqueCropsName)
	if err != nil {
		return nil, err
	}

	set := &Set{Model: &forest.Forest{}, Encoders: &features.Bundle{}}
	if err := gob.NewDecoder(bytes.NewReader(blobs[ModelName])).Decode(set.Model); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := gob.NewDecoder(bytes.NewReader(blobs[EncodersName])).Decode(set.Encoders); err != nil {
		return nil, fmt.Errorf("decode encoders: %w", err)
	}
	set.Info, set.UniqueCrops, err = decodeReport(blobs)
	if err != nil {
		return nil, err
	}
	return set, nil
}

// LoadReport reads only the JSON documents: model info and unique crops.
func LoadReport(ctx context.Context, store Store) (domain.ModelInfo, []string, error) {
	blobs, err := store.GetAll(ctx, ModelInfoName, UniqueCropsName)
	if err != nil {
		return domain.ModelInfo{}, nil, err
	}
	return decodeReport(blobs)
}

func decodeReport(blobs map[string][]byte) (domain.ModelInfo, []string, error) {
	var info domain.ModelInfo
	if err := json.Unmarshal(blobs[ModelInfoName], &info); err != nil {
		return info, nil, fmt.Errorf("decode model info: %w", err)
	}
	var crops []string
	if err := json.Unmarshal(blobs[UniqueCropsName], &crops); err != nil {
		return info, nil, fmt.Errorf("decode unique crops: %w", err)
	}
	return info, crops, nil
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Repository reads and writes complete artifact sets through a Store.
type Repository struct {
	store Store
}

// NewRepository wraps store.
func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) Save(ctx context.Context, set *Set) error { return Save(ctx, r.store, set) }

func (r *Repository) Load(ctx context.Context) (*Set, error) { return Load(ctx, r.store) }

func (r *Repository) LoadReport(ctx context.Context) (domain.ModelInfo, []string, error) {
	return LoadReport(ctx, r.store)
}
