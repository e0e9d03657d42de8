package vectorstore

const (
	MetaFilename   = "filename"
	MetaDocumentID = "document_id"
	MetaChunkIndex = "chunk_index"
)

// Chunk is one indexed text segment. Score is only set on search results.
type Chunk struct {
	ID       string
	Content  string
	Metadata map[string]any
	Score    float64
}

// Filename returns the source filename recorded in metadata, or "" when the
// metadata or the key is missing.
func (c Chunk) Filename() string {
	if c.Metadata == nil {
		return ""
	}
	name, ok := c.Metadata[MetaFilename].(string)
	if !ok {
		return ""
	}
	return name
}
