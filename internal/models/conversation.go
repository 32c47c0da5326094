package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Categories used for injected system messages.
const (
	CategoryInstructions    = "instructions"
	CategoryWeatherCurrent  = "weather_current"
	CategoryWeatherForecast = "weather_forecast"
	CategoryPlantData       = "plant_data"
)

// Modes a conversation can be in.
const (
	ModeGeneral       = "general"
	ModeDatabase      = "database"
	ModeImageAnalysis = "image_analysis"
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"` // system messages only
	Mode      string    `json:"mode,omitempty"`
	Images    []string  `json:"images,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Conversation struct {
	ID           string            `json:"id"`
	Mode         string            `json:"mode,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Messages     []Message         `json:"messages"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity time.Time         `json:"last_activity"`
}
