package models

// Contributor application states.
const (
	ApplicationPending         = "PENDING"
	ApplicationAccept          = "ACCEPT"
	ApplicationTemporaryAccept = "TEMPORARY_ACCEPT"
	ApplicationReject          = "REJECT"
)

type ContributionApplication struct {
	Contact    string `json:"contact"`
	Handle     string `json:"handle"`
	Jobs       string `json:"jobs"`
	Motivation string `json:"motivation"`
	Law        bool   `json:"law"`
	License    bool   `json:"license"`
}

type ContributionApplicationResponse struct {
	UserID    string `json:"userId"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

type ContributionApplicationStatus struct {
	UserID     string `json:"userId"`
	ClientID   string `json:"clientId"`
	Status     string `json:"status"`
	Jobs       string `json:"jobs"`
	Motivation string `json:"motivation"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// ClientSecretResponse is only ever returned once, at generation time.
type ClientSecretResponse struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	CreatedAt    string `json:"createdAt"`
	ExpiresAt    string `json:"expiresAt"`
}

type ClientSecretInfo struct {
	CreatedAt string `json:"createdAt"`
	ExpiresAt string `json:"expiresAt"`
}

type ContributorInfo struct {
	UserID       string           `json:"userId"`
	ClientID     string           `json:"clientId"`
	ClientSecret ClientSecretInfo `json:"clientSecret"`
	Status       string           `json:"status"`
}
