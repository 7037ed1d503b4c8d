package llmstream

// Citation references the source a span of text was grounded on.
// Only Snippet is always present; the rest depends on the citation type.
type Citation struct {
	// Type is the provider citation type (char_location, page_location,
	// content_block_location, web_search_result_location, search_result_location).
	Type string `json:"type"`

	Snippet string  `json:"snippet"`
	Title   *string `json:"title,omitempty"`
	URL     *string `json:"url,omitempty"`
	FileID  *string `json:"file_id,omitempty"`

	DocumentIndex *int `json:"document_index,omitempty"`

	// Offsets are character, page or block positions depending on Type.
	StartOffset *int `json:"start_offset,omitempty"`
	EndOffset   *int `json:"end_offset,omitempty"`
}
