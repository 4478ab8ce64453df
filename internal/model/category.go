package model

// Category groups events for browsing filters.
type Category struct {
	ID   uint64 `json:"category_id"` // categories.category_id
	Name string `json:"name"`        // categories.name
}
