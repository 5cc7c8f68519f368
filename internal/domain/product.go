package domain

// Product is a catalog entry priced in minor units of Currency. Price is the
// lowest price across variants.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Images      []string  `json:"images,omitempty"`
	Price       int64     `json:"price"`
	Currency    string    `json:"currency,omitempty"`
	HasPrice    bool      `json:"has_price"`
	Variants    []Variant `json:"variants,omitempty"`
}

// Variant is a purchasable option of a product. A variant without its own
// price sells at the product price.
type Variant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Currency string `json:"currency,omitempty"`
	HasPrice bool   `json:"has_price"`
}

// Variant returns the variant with the given id.
func (p Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}
