package models

// Profile field names as stored in the document and used in request bodies.
const (
	FieldPhoneNumber = "phone_number"
	FieldPlaces      = "places"
	FieldLocation    = "location"
	FieldChatHistory = "chat_history"
	FieldInterest    = "interest"
	FieldLanguage    = "language"
)

// Profile is the per-phone-number travel document.
//
// Places and ChatHistory are nil when the field is absent and non-nil (possibly empty) when present.
// The JSON tags deliberately omit omitempty so the file-backed store keeps that distinction.
type Profile struct {
	PhoneNumber string    `json:"phone_number"`
	Places      []any     `json:"places"`
	Location    *Location `json:"location"`
	ChatHistory []any     `json:"chat_history"`
	Interest    *string   `json:"interest"`
	Language    *string   `json:"language"`
}

// Location is the user's current position. It is always replaced as a whole.
type Location struct {
	Lat           float64 `json:"lat" bson:"lat"`
	Long          float64 `json:"long" bson:"long"`
	StreetAddress string  `json:"street_address" bson:"street_address"`
}

// Clone returns a deep copy so callers cannot alias store-owned slices and maps.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := &Profile{PhoneNumber: p.PhoneNumber}
	if p.Places != nil {
		out.Places = CloneList(p.Places)
	}
	if p.ChatHistory != nil {
		out.ChatHistory = CloneList(p.ChatHistory)
	}
	if p.Location != nil {
		loc := *p.Location
		out.Location = &loc
	}
	if p.Interest != nil {
		v := *p.Interest
		out.Interest = &v
	}
	if p.Language != nil {
		v := *p.Language
		out.Language = &v
	}
	return out
}

// CloneList deep-copies a list of opaque JSON-like values.
func CloneList(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies maps and slices; scalars are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = CloneValue(val)
		}
		return m
	case []any:
		return CloneList(t)
	default:
		return v
	}
}

// PlaceTitle returns the title of a place record, if it has a string one.
func PlaceTitle(place any) (string, bool) {
	m, ok := place.(map[string]any)
	if !ok {
		return "", false
	}
	title, ok := m["title"].(string)
	return title, ok
}

// IndexOfPlace returns the index of the first place whose title equals name, or -1.
func IndexOfPlace(places []any, name string) int {
	for i, p := range places {
		if title, ok := PlaceTitle(p); ok && title == name {
			return i
		}
	}
	return -1
}
