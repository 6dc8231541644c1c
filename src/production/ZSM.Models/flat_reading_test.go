package zsmmodels

import (
	"encoding/json"
	"strings"
	"testing"
)

func sampleReading() Reading {
	return Reading{
		Timestamp: "2024-05-01T10:00:00Z",
		DeviceID:  "SN-A7B4-C2D9",
		Measurements: Measurement{
			SoilMoisturePercent:    35.12,
			SoilTemperatureCelsius: 20.05,
			PrecipitationMM:        0,
		},
	}
}

func TestFlattenKeysAndOrder(t *testing.T) {
	flat := sampleReading().Flatten()
	want := []string{FieldTimestamp, FieldHumidityPercent, FieldSoilTempCelsius, FieldPrecipitationMM}
	if len(flat) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(flat))
	}
	for i, key := range want {
		if flat[i].Key != key {
			t.Fatalf("field %d: got %q want %q", i, flat[i].Key, key)
		}
	}
	if v, ok := flat.Get(FieldHumidityPercent); !ok || v.(float64) != 35.12 {
		t.Fatalf("unexpected humidity value %v", v)
	}
	if _, ok := flat.Get("missing"); ok {
		t.Fatalf("expected lookup of unknown key to fail")
	}
}

func TestFlatReadingMarshalJSONKeepsOrder(t *testing.T) {
	b, err := json.Marshal(sampleReading().Flatten())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(b)
	want := `{"timestamp":"2024-05-01T10:00:00Z","humidity_percent":35.12,"soil_temp_celsius":20.05,"precipitation_mm":0}`
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
}

func TestFlatReadingString(t *testing.T) {
	s := sampleReading().Flatten().String()
	if !strings.HasPrefix(s, `{"timestamp": 2024-05-01T10:00:00Z`) {
		t.Fatalf("unexpected rendering %q", s)
	}
	if !strings.Contains(s, `"precipitation_mm": 0`) {
		t.Fatalf("precipitation missing from %q", s)
	}
}

func TestFailedBatchCarriesNoReadings(t *testing.T) {
	batch := FailedBatch(ErrMissingCredentials)
	if batch.Success {
		t.Fatalf("failed batch reported success")
	}
	if len(batch.Readings) != 0 {
		t.Fatalf("failed batch carries %d readings", len(batch.Readings))
	}
	if batch.Message != "missing credential or device identifier" {
		t.Fatalf("unexpected message %q", batch.Message)
	}
}
