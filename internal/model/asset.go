package model

import "time"

// Asset is a stored binary file plus its descriptive metadata.
// It carries no persistence tags so every layer can share it.
type Asset struct {
	ID           string    `json:"id"`
	StoredName   string    `json:"stored_name"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	StoragePath  string    `json:"storage_path"`
	Tags         []string  `json:"tags"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// AssetQuery is a validated filter over assets. Zero fields do not constrain.
type AssetQuery struct {
	// MimeType matches case-insensitively as a substring of the stored mime type.
	MimeType string
	// UploadedFrom and UploadedTo form the half-open window [from, to).
	UploadedFrom *time.Time
	UploadedTo   *time.Time
	// Tags match when any stored tag contains any of them, case-insensitively.
	Tags []string
}
