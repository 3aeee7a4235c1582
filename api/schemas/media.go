package schemas

import "time"

// MediaAnalysis is the cached AI description of one media item. FileName is
// the unique key and also derives the source URL under the remote media
// convention. Entries expire after a fixed TTL, enforced lazily on read.
type MediaAnalysis struct {
	FileName    string    `json:"filename"`
	FileType    string    `json:"file_type,omitempty"`
	Description string    `json:"description"`
	RawBytes    []byte    `json:"-"`
	Category    string    `json:"category,omitempty"`
	URL         string    `json:"url,omitempty"`
	Cached      bool      `json:"cached"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
