package models

// Zone is a scouting area pulled from the backend and cached locally
type Zone struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Synced      bool   `json:"synced"`
}

// Crop is a cultivation within a zone
type Crop struct {
	ID      string `json:"id"`
	ZoneID  string `json:"zoneId"`
	Name    string `json:"name"`
	Variety string `json:"variety,omitempty"`
	Synced  bool   `json:"synced"`
}
