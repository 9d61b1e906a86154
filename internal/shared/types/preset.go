package types

import "time"

// Preset is a prebuilt view definition loaded from a manifest file.
// Launching a preset allocates a fresh live view from it.
type Preset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Title       string    `json:"title"`
	HTML        string    `json:"html"`
	Options     Options   `json:"options"`
	Column      Column    `json:"column,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Author      string    `json:"author,omitempty"`
	Version     string    `json:"version,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PresetMetadata is the listing form of a preset.
type PresetMetadata struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Version     string   `json:"version,omitempty"`
}

// ToMetadata converts a preset to its listing form.
func (p *Preset) ToMetadata() PresetMetadata {
	return PresetMetadata{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Tags:        p.Tags,
		Version:     p.Version,
	}
}

// PresetStats contains preset registry statistics
type PresetStats struct {
	TotalPresets int            `json:"total_presets"`
	Tags         map[string]int `json:"tags"`
	LastUpdated  *time.Time     `json:"last_updated,omitempty"`
}
