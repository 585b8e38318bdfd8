package models

import "time"

// Status is the lifecycle state of an uploaded document.
type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
	StatusDeleted Status = "deleted"
)

// Document represents the record for one uploaded PDF.
// It is immutable after creation except for Status.
type Document struct {
	ID               string    `firestore:"id"`
	FileHash         string    `firestore:"fileHash,omitempty"`
	OriginalFilename string    `firestore:"originalFilename"`
	SizeBytes        int64     `firestore:"sizeBytes"`
	PageCount        int       `firestore:"pageCount"`
	RowCount         int       `firestore:"rowCount"`
	MaxColumns       int       `firestore:"maxColumns"`
	Status           Status    `firestore:"status"`
	CreatedAt        time.Time `firestore:"createdAt"`
}

// Row is one line of extracted content. Rows keep their true width; padding
// to the document width happens at render time.
type Row []string

// MaxWidth returns the widest row length.
func MaxWidth(rows []Row) int {
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// PadRows returns copies of rows padded with empty cells (or truncated) to
// exactly width cells.
func PadRows(rows []Row, width int) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		p := make(Row, width)
		copy(p, r)
		out[i] = p
	}
	return out
}
