package zsmmodels

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Human readable keys used when a reading is logged or mirrored.
const (
	FieldTimestamp       = "timestamp"
	FieldHumidityPercent = "humidity_percent"
	FieldSoilTempCelsius = "soil_temp_celsius"
	FieldPrecipitationMM = "precipitation_mm"
)

// FlatField is a single key/value pair of a flattened reading.
type FlatField struct {
	Key   string
	Value interface{}
}

// FlatReading is a reading collapsed into an ordered key/value list.
type FlatReading []FlatField

// Flatten collapses r into the fields operators look for in the log stream.
func (r Reading) Flatten() FlatReading {
	return FlatReading{
		{Key: FieldTimestamp, Value: r.Timestamp},
		{Key: FieldHumidityPercent, Value: r.Measurements.SoilMoisturePercent},
		{Key: FieldSoilTempCelsius, Value: r.Measurements.SoilTemperatureCelsius},
		{Key: FieldPrecipitationMM, Value: r.Measurements.PrecipitationMM},
	}
}

// Map returns the fields as a map.
func (f FlatReading) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(f))
	for _, field := range f {
		m[field.Key] = field.Value
	}
	return m
}

// Get looks up a field by key.
func (f FlatReading) Get(key string) (interface{}, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// MarshalJSON keeps the field order stable on the wire.
func (f FlatReading) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(field.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", field.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// String renders the reading the way it shows up in the log stream.
func (f FlatReading) String() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%q: %v", field.Key, field.Value)
	}
	buf.WriteByte('}')
	return buf.String()
}
