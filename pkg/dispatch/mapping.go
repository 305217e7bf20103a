package dispatch

import (
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

// MappingVersion identifies the dataset-column to metric mapping below.
const MappingVersion = "v1"

type metric struct {
	column string
	name   string
	unit   string
}

var mappings = map[models.DeviceType][]metric{
	models.DeviceFish: {
		{column: "water_temperature", name: "temperature", unit: "°C"},
		{column: "water_ph", name: "ph", unit: "pH"},
		{column: "ec_value", name: "ec", unit: "µS/cm"},
		{column: "tds", name: "tds", unit: "ppm"},
		{column: "turbidity", name: "turbidity", unit: "NTU"},
	},
	models.DevicePlant: {
		{column: "height", name: "height", unit: "cm"},
		{column: "temperature", name: "temperature", unit: "°C"},
		{column: "humidity", name: "humidity", unit: "%"},
		{column: "pressure", name: "pressure", unit: "Pa"},
	},
}

// Readings converts a dataset row into canonical readings stamped with ts.
// Columns missing from the row are left out.
func Readings(deviceType models.DeviceType, row *models.DatasetRow, ts string) ([]models.Reading, error) {
	metrics, ok := mappings[deviceType]
	if !ok {
		return nil, models.ErrInvalidDeviceType
	}

	readings := make([]models.Reading, 0, len(metrics))

	for _, m := range metrics {
		v, ok := row.Fields[m.column]
		if !ok {
			continue
		}

		readings = append(readings, models.Reading{
			Type:      m.name,
			Value:     v,
			Unit:      m.unit,
			Timestamp: ts,
		})
	}

	if len(readings) == 0 {
		return nil, errNoReadings
	}

	return readings, nil
}
