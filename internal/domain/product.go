package domain

import "time"

// ProductType distinguishes plain products from composite SET products
type ProductType string

const (
	ProductSimple ProductType = "SIMPLE"
	ProductSet    ProductType = "SET"
)

// Product carries the identity used to map marketplace order lines to
// internal stock. SET products have no shelf stock of their own; they
// decompose into components via SetItems at order time.
type Product struct {
	ID        string         `bson:"_id" json:"id"`
	Barcode   string         `bson:"barcode" json:"barcode"`
	StockCode string         `bson:"stockCode" json:"stockCode"`
	ContentID string         `bson:"contentId,omitempty" json:"contentId,omitempty"`
	Name      string         `bson:"name" json:"name"`
	Type      ProductType    `bson:"type" json:"type"`
	SetItems  []ProductSetItem `bson:"setItems,omitempty" json:"setItems,omitempty"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// ProductSetItem defines that one unit of the SET decomposes into Quantity
// units of the component product
type ProductSetItem struct {
	ComponentProductID string  `bson:"componentProductId" json:"componentProductId"`
	Quantity           int     `bson:"quantity" json:"quantity"`
	PriceShare         float64 `bson:"priceShare" json:"priceShare"`
	SortOrder          int     `bson:"sortOrder" json:"sortOrder"`
}

// IsSet reports whether the product decomposes into components
func (p *Product) IsSet() bool {
	return p.Type == ProductSet && len(p.SetItems) > 0
}

// ComponentRequirement is one component's total quantity need for an order line
type ComponentRequirement struct {
	ProductID    string
	Quantity     int
	SetProductID string // empty for plain products
}

// ExpandRequirements converts an order line for this product into the
// component quantities that must actually be reserved. A SET line of
// quantity N requires N x componentQty of each component; a plain line
// requires the line quantity of the product itself.
func (p *Product) ExpandRequirements(lineQty int) []ComponentRequirement {
	if !p.IsSet() {
		return []ComponentRequirement{{ProductID: p.ID, Quantity: lineQty}}
	}

	reqs := make([]ComponentRequirement, 0, len(p.SetItems))
	for _, item := range p.SetItems {
		reqs = append(reqs, ComponentRequirement{
			ProductID:    item.ComponentProductID,
			Quantity:     item.Quantity * lineQty,
			SetProductID: p.ID,
		})
	}
	return reqs
}
