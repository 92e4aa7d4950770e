package domain

const DefaultSearchLimit = 2

// Status is the document service's view of its vector store.
type Status struct {
	DocumentCount int
	HasDocuments  bool
}

// Passage is one retrieved chunk with whatever metadata the service stored.
type Passage struct {
	Content  string
	Metadata map[string]any
}

// Source returns the metadata "source" entry when it is a string.
func (p Passage) Source() string {
	if s, ok := p.Metadata["source"].(string); ok {
		return s
	}
	return ""
}
