package models

import "strings"

// Column headers of the plant sheet, in sheet order.
const (
	FieldID                      = "ID"
	FieldName                    = "Plant Name"
	FieldDescription             = "Description"
	FieldLocation                = "Location"
	FieldLightRequirements       = "Light Requirements"
	FieldFrostTolerance          = "Frost Tolerance"
	FieldWateringNeeds           = "Watering Needs"
	FieldSoilPreferences         = "Soil Preferences"
	FieldPruningInstructions     = "Pruning Instructions"
	FieldMulchingNeeds           = "Mulching Needs"
	FieldFertilizingSchedule     = "Fertilizing Schedule"
	FieldWinterizingInstructions = "Winterizing Instructions"
	FieldSpacingRequirements     = "Spacing Requirements"
	FieldCareNotes               = "Care Notes"
	FieldPhotoURL                = "Photo URL"
	FieldRawPhotoURL             = "Raw Photo URL"
	FieldLastUpdated             = "Last Updated"
)

var PlantFields = []string{
	FieldID,
	FieldName,
	FieldDescription,
	FieldLocation,
	FieldLightRequirements,
	FieldFrostTolerance,
	FieldWateringNeeds,
	FieldSoilPreferences,
	FieldPruningInstructions,
	FieldMulchingNeeds,
	FieldFertilizingSchedule,
	FieldWinterizingInstructions,
	FieldSpacingRequirements,
	FieldCareNotes,
	FieldPhotoURL,
	FieldRawPhotoURL,
	FieldLastUpdated,
}

type Plant struct {
	ID                      string `json:"id"`
	Name                    string `json:"name"`
	Description             string `json:"description,omitempty"`
	Location                string `json:"location,omitempty"`
	LightRequirements       string `json:"light_requirements,omitempty"`
	FrostTolerance          string `json:"frost_tolerance,omitempty"`
	WateringNeeds           string `json:"watering_needs,omitempty"`
	SoilPreferences         string `json:"soil_preferences,omitempty"`
	PruningInstructions     string `json:"pruning_instructions,omitempty"`
	MulchingNeeds           string `json:"mulching_needs,omitempty"`
	FertilizingSchedule     string `json:"fertilizing_schedule,omitempty"`
	WinterizingInstructions string `json:"winterizing_instructions,omitempty"`
	SpacingRequirements     string `json:"spacing_requirements,omitempty"`
	CareNotes               string `json:"care_notes,omitempty"`
	PhotoURL                string `json:"photo_url,omitempty"`
	RawPhotoURL             string `json:"raw_photo_url,omitempty"`
	LastUpdated             string `json:"last_updated,omitempty"`
}

func (p *Plant) fieldRef(name string) *string {
	switch name {
	case FieldID:
		return &p.ID
	case FieldName:
		return &p.Name
	case FieldDescription:
		return &p.Description
	case FieldLocation:
		return &p.Location
	case FieldLightRequirements:
		return &p.LightRequirements
	case FieldFrostTolerance:
		return &p.FrostTolerance
	case FieldWateringNeeds:
		return &p.WateringNeeds
	case FieldSoilPreferences:
		return &p.SoilPreferences
	case FieldPruningInstructions:
		return &p.PruningInstructions
	case FieldMulchingNeeds:
		return &p.MulchingNeeds
	case FieldFertilizingSchedule:
		return &p.FertilizingSchedule
	case FieldWinterizingInstructions:
		return &p.WinterizingInstructions
	case FieldSpacingRequirements:
		return &p.SpacingRequirements
	case FieldCareNotes:
		return &p.CareNotes
	case FieldPhotoURL:
		return &p.PhotoURL
	case FieldRawPhotoURL:
		return &p.RawPhotoURL
	case FieldLastUpdated:
		return &p.LastUpdated
	}
	return nil
}

// Field returns the value stored under a sheet header and whether the header is known.
func (p Plant) Field(name string) (string, bool) {
	ref := p.fieldRef(name)
	if ref == nil {
		return "", false
	}
	return *ref, true
}

// SetField assigns a value by sheet header. Unknown headers are ignored.
func (p *Plant) SetField(name, value string) bool {
	ref := p.fieldRef(name)
	if ref == nil {
		return false
	}
	*ref = value
	return true
}

// Details lists the non-empty descriptive fields, excluding id, photos and timestamps.
func (p Plant) Details() [][2]string {
	var out [][2]string
	for _, f := range PlantFields {
		switch f {
		case FieldID, FieldPhotoURL, FieldRawPhotoURL, FieldLastUpdated:
			continue
		}
		if v, _ := p.Field(f); strings.TrimSpace(v) != "" {
			out = append(out, [2]string{f, v})
		}
	}
	return out
}

// Locations splits the comma separated location column.
func (p Plant) Locations() []string {
	var out []string
	for _, loc := range strings.Split(p.Location, ",") {
		if loc = strings.TrimSpace(loc); loc != "" {
			out = append(out, strings.ToLower(loc))
		}
	}
	return out
}

// PhotoLink returns the photo URL suitable for sharing, preferring the raw URL.
func (p Plant) PhotoLink() string {
	link := p.RawPhotoURL
	if link == "" {
		link = p.PhotoURL
	}
	if strings.Contains(link, "photos.google.com") {
		link = strings.SplitN(link, "?", 2)[0] + "?authuser=0"
	}
	return link
}
