package model

// IndexPurge asks the vector index to drop every chunk of a deleted document.
type IndexPurge struct {
	DocumentID uint   `json:"document_id"`
	Filename   string `json:"filename"`
}
