package model

import (
	"encoding/json"
	"time"
)

// Reading is a single water-quality sample from the sensor.
type Reading struct {
	PH          float64 `json:"ph"`
	Temperature float64 `json:"temperature"`
	WaterLevel  string  `json:"waterLevel"`
	TDS         int     `json:"tds"`
	CapturedAt  int64   `json:"capturedAt"`
}

// NewReading builds a reading captured at the given instant. The timestamp
// is stored as milliseconds since the Unix epoch.
func NewReading(ph, temperature float64, waterLevel string, tds int, capturedAt time.Time) Reading {
	return Reading{
		PH:          ph,
		Temperature: temperature,
		WaterLevel:  waterLevel,
		TDS:         tds,
		CapturedAt:  capturedAt.UnixMilli(),
	}
}

func (r Reading) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

func ReadingFromJSON(data []byte) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(data, &r); err != nil {
		return Reading{}, err
	}
	return r, nil
}
