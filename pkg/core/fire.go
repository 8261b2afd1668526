// pkg/core/fire.go
package core

// FireHotspot is one satellite fire detection in the style of a NASA FIRMS
// record.
type FireHotspot struct {
	ID         string  `json:"id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Brightness float64 `json:"brightness"` // Kelvin
	Scan       float64 `json:"scan"`       // km
	Track      float64 `json:"track"`      // km
	AcqDate    string  `json:"acq_date"`
	AcqTime    string  `json:"acq_time"`
	Satellite  string  `json:"satellite"`
	Confidence int     `json:"confidence"` // 0-100
	Version    string  `json:"version"`
	BrightT31  float64 `json:"bright_t31"`
	FRP        float64 `json:"frp"` // Fire Radiative Power, MW
	DayNight   string  `json:"daynight"`
	Type       int     `json:"type"` // 0 = presumed vegetation fire
}
