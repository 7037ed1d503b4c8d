package llmstream

// MessageLevel is the BlockIndex of chunks that do not belong to a block,
// such as cumulative usage.
const MessageLevel = -1

// Chunk is one content item emitted while streaming.
type Chunk struct {
	// BlockIndex is the index of the block the chunk belongs to, or MessageLevel.
	BlockIndex int `json:"block_index"`

	// Complete is false for fragments (text and reasoning deltas) and true
	// when Content is the finalized block.
	Complete bool `json:"complete"`

	Content Content `json:"content"`
}

// Update is one emission of a stream. Updates are produced strictly in
// event arrival order.
type Update struct {
	Chunks []Chunk `json:"chunks,omitempty"`

	// Metadata echoes, set once when the response starts.
	ResponseID *string `json:"response_id,omitempty"`
	Model      *string `json:"model,omitempty"`
	Role       *string `json:"role,omitempty"`
}

// IsEmpty reports whether the update carries nothing.
func (u Update) IsEmpty() bool {
	return len(u.Chunks) == 0 && u.ResponseID == nil && u.Model == nil && u.Role == nil
}

// StreamEvent is sent on the channel returned by Provider.StreamResponse.
// Exactly one field is set. Response is sent once, last, on success;
// Error is sent once, last, on failure.
type StreamEvent struct {
	Update   *Update
	Response *Response
	Error    error
}
