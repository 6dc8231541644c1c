package publisher

import (
	"encoding/json"

	zsmmodels "gitlab.com/maplesense1/zsm.sensor_simulator/src/production/ZSM.Models"
)

// encodeReading renders the flattened reading with the device id appended.
func encodeReading(r zsmmodels.Reading) ([]byte, error) {
	flat := append(r.Flatten(), zsmmodels.FlatField{Key: "device_id", Value: r.DeviceID})
	return json.Marshal(flat)
}
