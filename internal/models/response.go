package models

// MessageResponse is the body of every write and error response.
type MessageResponse struct {
	Message string `json:"message"`
}

// NewMessageResponse creates a message response
func NewMessageResponse(message string) MessageResponse {
	return MessageResponse{Message: message}
}

// PlaceResponse is returned after the topmost place is removed.
type PlaceResponse struct {
	Place any `json:"place"`
}
