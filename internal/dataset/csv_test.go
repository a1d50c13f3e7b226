package dataset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/crop-water-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = `CROP TYPE,SOIL TYPE,REGION,WEATHER CONDITION,TEMPERATURE,WATER REQUIREMENT
BANANA,DRY,DESERT,NORMAL,10-20,8.75
RICE,WET,HUMID,RAINY,20-30, 3.5
`

func TestRead(t *testing.T) {
	records, err := Read(strings.NewReader(testCSV))
	require.NoError(t, err)

	want := []domain.Record{
		{Crop: "BANANA", Soil: "DRY", Region: "DESERT", Weather: "NORMAL", Temperature: "10-20", WaterRequirement: 8.75},
		{Crop: "RICE", Soil: "WET", Region: "HUMID", Weather: "RAINY", Temperature: "20-30", WaterRequirement: 3.5},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestRead_ColumnOrderIsFree(t *testing.T) {
	data := "WATER REQUIREMENT,TEMPERATURE,WEATHER CONDITION,REGION,SOIL TYPE,CROP TYPE,NOTES\n" +
		"4.2,15-25,SUNNY,SEMI ARID,HUMID,MAIZE,ignored\n"

	records, err := Read(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "MAIZE", records[0].Crop)
	assert.Equal(t, "SEMI ARID", records[0].Region)
	assert.Equal(t, 4.2, records[0].WaterRequirement)
}

func TestRead_MissingColumn(t *testing.T) {
	data := "CROP TYPE,SOIL TYPE,REGION,TEMPERATURE,WATER REQUIREMENT\nRICE,WET,HUMID,20-30,3.5\n"

	_, err := Read(strings.NewReader(data))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataFormat)
	assert.Contains(t, err.Error(), domain.ColumnWeather)
}

func TestRead_NonNumericTarget(t *testing.T) {
	data := "CROP TYPE,SOIL TYPE,REGION,WEATHER CONDITION,TEMPERATURE,WATER REQUIREMENT\n" +
		"RICE,WET,HUMID,RAINY,20-30,lots\n"

	_, err := Read(strings.NewReader(data))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataFormat)
	assert.Contains(t, err.Error(), "line 2")
}

func TestRead_NonFiniteTarget(t *testing.T) {
	for _, raw := range []string{"NaN", "nan", "Inf", "-Inf", "+Infinity", "1e400"} {
		data := "CROP TYPE,SOIL TYPE,REGION,WEATHER CONDITION,TEMPERATURE,WATER REQUIREMENT\n" +
			"WHEAT,DRY,DESERT,SUNNY,20-30,4\n" +
			"RICE,WET,HUMID,RAINY,20-30," + raw + "\n"

		_, err := Read(strings.NewReader(data))
		require.Error(t, err, raw)
		assert.ErrorIs(t, err, domain.ErrDataFormat, raw)
		assert.Contains(t, err.Error(), "line 3", raw)
	}
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrDataFormat)

	_, err = Read(strings.NewReader("CROP TYPE,SOIL TYPE,REGION,WEATHER CONDITION,TEMPERATURE,WATER REQUIREMENT\n"))
	assert.ErrorIs(t, err, domain.ErrDataFormat)
}

func TestWrite_RoundTripsThroughRead(t *testing.T) {
	records, err := Read(strings.NewReader(testCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records))

	again, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, records, again)
}

func TestFileSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crop.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0o600))

	records, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.csv")).Load(context.Background())
	assert.Error(t, err)
}
