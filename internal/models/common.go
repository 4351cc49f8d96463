package models

// MessageResponse is the generic acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// Page is a server-side paginated listing.
type Page[T any] struct {
	Content       []T  `json:"content"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	Number        int  `json:"number"`
	Size          int  `json:"size"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
}

// SubmitResult is returned when data is pushed to the platform.
type SubmitResult struct {
	Result string `json:"result"`
	Reason string `json:"reason,omitempty"`
}
