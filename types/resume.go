package types

import "time"

// Resume represents one uploaded resume and its metadata.
// FilePath holds the generated storage key, never the client-supplied
// filename; FileName keeps the original name for display only.
type Resume struct {
	// ID is the unique identifier of the resume record.
	ID int `json:"id" db:"id"`

	// UserID references the owning user. Every query against resumes
	// is scoped to this field.
	UserID int `json:"user_id" db:"user_id"`

	// Name is the display name the user gave this resume.
	Name string `json:"name" db:"name"`

	// SubmissionDate is the calendar date the user entered on upload.
	SubmissionDate time.Time `json:"submission_date" db:"submission_date"`

	// FilePath is the opaque storage key of the persisted file.
	FilePath string `json:"file_path" db:"file_path"`

	// FileName is the original filename as uploaded by the client.
	FileName string `json:"file_name" db:"file_name"`

	// UploadDate is the timestamp when the record was persisted.
	UploadDate time.Time `json:"upload_date" db:"upload_date"`
}
