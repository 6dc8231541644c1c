package zsmmodels

import "errors"

// ErrMissingCredentials is returned when a reading is requested without an
// API token or a device identifier.
var ErrMissingCredentials = errors.New("missing credential or device identifier")

// Measurement is one synthetic soil sample.
type Measurement struct {
	SoilMoisturePercent    float64 `json:"soil_moisture_percent"`
	SoilTemperatureCelsius float64 `json:"soil_temperature_celsius"`
	PrecipitationMM        float64 `json:"precipitation_mm"`
}

// Reading tags a measurement with the device that produced it.
type Reading struct {
	Timestamp    string      `json:"timestamp"`
	DeviceID     string      `json:"device_id"`
	Measurements Measurement `json:"measurements"`
}

// ReadingBatch mirrors the shape of the device cloud response. A failed batch
// never carries readings.
type ReadingBatch struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message,omitempty"`
	DeviceID string    `json:"device_id,omitempty"`
	Readings []Reading `json:"readings"`
}

// FailedBatch builds an unsuccessful batch for err.
func FailedBatch(err error) ReadingBatch {
	batch := ReadingBatch{Success: false, Readings: []Reading{}}
	if err != nil {
		batch.Message = err.Error()
	}
	return batch
}
