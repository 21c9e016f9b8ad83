package signal

// CatalogItem is an external catalog entry (a book, typically) matched
// against signals for promotion. Read-only input.
type CatalogItem struct {
	ID          string   `json:"id" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Keywords    []string `json:"keywords" validate:"dive,required"`
	Genre       string   `json:"genre"`
	ExternalURL string   `json:"external_url,omitempty" validate:"omitempty,url"`
}

// Validate checks the structural invariants of c.
func (c CatalogItem) Validate() error {
	return validateStruct("catalog item", c)
}

// RelevanceResult relates two entities by ID.
type RelevanceResult struct {
	EntityA        string `json:"entity_a"`
	EntityB        string `json:"entity_b"`
	RelevanceScore int    `json:"relevance_score"`
}
