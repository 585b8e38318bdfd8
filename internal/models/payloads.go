package models

// These structs define the JSON payloads exchanged with the browser client.

// ConversionResponse is returned by upload and preview.
type ConversionResponse struct {
	ID               string `json:"id"`
	OriginalFilename string `json:"original_filename"`
	Status           Status `json:"status"`
	PreviewData      []Row  `json:"preview_data"`
	TotalRows        int    `json:"total_rows"`
	TotalPages       int    `json:"total_pages"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse carries a user-facing error message.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
