package catalog

// Product is a single catalog entry. Stock is only ever mutated through the
// store's DecrementStock/IncrementStock operations and never goes negative.
type Product struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Stock      int     `json:"stock"`
	Controlled bool    `json:"controlled"`
}
