package dto

type StatusInput struct {
	Refresh bool
}

type StatusOutput struct {
	DocumentCount int
	HasDocuments  bool
	Cached        bool
}

type SearchInput struct {
	Query string
	N     int
}

type PassageOutput struct {
	Content  string
	Source   string
	Metadata map[string]any
}
