package domain

// Page is one document fetched from the content source, before chunking.
// Version is an opaque tag distinguishing variants of the same logical
// page; an absent version is represented as "unknown".
type Page struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Version string `json:"version"`
	Text    string `json:"text"`
}

// IngestResult summarizes one completed ingestion run.
type IngestResult struct {
	PagesProcessed int `json:"pages_processed"`
	ChunksWritten  int `json:"chunks_written"`
}
