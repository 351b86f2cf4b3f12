package models

// UpdatePlacesRequest replaces the whole places list.
type UpdatePlacesRequest struct {
	Places []any `json:"places" validate:"required"`
}

// UpdateLocationRequest replaces the stored location.
type UpdateLocationRequest struct {
	Location *LocationInput `json:"location" validate:"required"`
}

// LocationInput uses pointers so a missing key is distinguishable from a zero value.
type LocationInput struct {
	Lat           *float64 `json:"lat" validate:"required"`
	Long          *float64 `json:"long" validate:"required"`
	StreetAddress *string  `json:"street_address" validate:"required"`
}

// ToLocation converts a validated input into the stored shape.
func (in *LocationInput) ToLocation() Location {
	return Location{
		Lat:           *in.Lat,
		Long:          *in.Long,
		StreetAddress: *in.StreetAddress,
	}
}

type UpdateChatHistoryRequest struct {
	ChatHistory []any `json:"chat_history" validate:"required"`
}

type UpdateInterestRequest struct {
	Interest *string `json:"interest" validate:"required"`
}

type UpdateLanguageRequest struct {
	Language *string `json:"language" validate:"required"`
}
