package domain

// CartItem is one line of the cart. Price is in minor units of Currency.
type CartItem struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	VariantID   string `json:"variant_id,omitempty"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
	Quantity    int    `json:"quantity"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	VariantName string `json:"variant_name,omitempty"`
}

// Candidate is a product (or product variant) about to be added to the cart:
// a CartItem without id and quantity.
type Candidate struct {
	ProductID   string `json:"product_id"`
	VariantID   string `json:"variant_id,omitempty"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	VariantName string `json:"variant_name,omitempty"`
}

// LineKey identifies a cart line. An empty VariantID means "no variant",
// which only ever matches another line without a variant.
type LineKey struct {
	ProductID string
	VariantID string
}

// Key returns the line identity of the item.
func (i CartItem) Key() LineKey {
	return LineKey{ProductID: i.ProductID, VariantID: i.VariantID}
}

// Key returns the line identity the candidate would occupy.
func (c Candidate) Key() LineKey {
	return LineKey{ProductID: c.ProductID, VariantID: c.VariantID}
}

// Subtotal returns price times quantity in minor units.
func (i CartItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}
