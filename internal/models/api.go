package models

// GenerateRequest is the body of POST /api/generate-dynamic-qr.
type GenerateRequest struct {
	OriginalContent string `json:"originalContent"`
	EventRef        string `json:"eventRef,omitempty"`
}

type GenerateResponse struct {
	ShortURL  string `json:"shortUrl"`
	ShortCode string `json:"shortCode"`
}

// UpdateRequest is the body of PUT /api/update-dynamic-qr/{shortCode}.
type UpdateRequest struct {
	NewContent string `json:"newContent"`
}

type UpdateResponse struct {
	Message       string     `json:"message"`
	UpdatedQrLink *ShortLink `json:"updatedQrLink"`
}

// LinkResponse describes a single link, including its public short URL.
type LinkResponse struct {
	ShortURL string `json:"shortUrl"`
	*ShortLink
}

type DeleteByEventResponse struct {
	Deleted int64 `json:"deleted"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
