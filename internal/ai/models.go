package ai

// RentIntent captures the structured output of rent classification.
type RentIntent struct {
	// IsRent is true when the message is a request to rent a bike.
	IsRent bool `json:"is_rent"`

	// HubName is the canonical hub name extracted from the message.
	// Nullable: a rent request without a named hub still counts.
	HubName *string `json:"hub_name,omitempty"`
}

// ReturnType is where the rider wants to leave the bike.
type ReturnType string

const (
	ReturnStation ReturnType = "STATION"
	ReturnZone    ReturnType = "ZONE"
	ReturnUnknown ReturnType = "UNKNOWN"
)

// ReturnIntent captures the structured output of return classification.
type ReturnIntent struct {
	IsReturn   bool       `json:"is_return"`
	ReturnType ReturnType `json:"return_type"`
	HubName    *string    `json:"hub_name,omitempty"`
}

// YesNo is the reduced form of a confirmation reply.
type YesNo string

const (
	Yes     YesNo = "YES"
	No      YesNo = "NO"
	Unknown YesNo = "UNKNOWN"
)
