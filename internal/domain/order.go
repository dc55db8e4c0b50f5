package domain

import (
	"encoding/json"
	"time"
)

// OrderStatus is the order-level lifecycle
type OrderStatus string

const (
	OrderCreated   OrderStatus = "CREATED"
	OrderPicking   OrderStatus = "PICKING"
	OrderPacked    OrderStatus = "PACKED"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// ItemStatus is the per-item reservation state machine:
// UNRESERVED -> RESERVED -> COMMITTED -> SHIPPED, with CANCELLED reachable
// from UNRESERVED, RESERVED and COMMITTED.
type ItemStatus string

const (
	ItemUnreserved ItemStatus = "UNRESERVED"
	ItemReserved   ItemStatus = "RESERVED"
	ItemCommitted  ItemStatus = "COMMITTED"
	ItemShipped    ItemStatus = "SHIPPED"
	ItemCancelled  ItemStatus = "CANCELLED"
)

var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemUnreserved: {ItemReserved, ItemCancelled},
	ItemReserved:   {ItemCommitted, ItemCancelled},
	ItemCommitted:  {ItemShipped, ItemCancelled},
	ItemShipped:    {},
	ItemCancelled:  {},
}

// CanTransition reports whether the status may move to the target
func (s ItemStatus) CanTransition(to ItemStatus) bool {
	for _, allowed := range itemTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Order is ingested atomically with its items. PackageID is the natural
// key from the marketplace and drives ingestion idempotency.
type Order struct {
	ID             string          `bson:"_id" json:"id"`
	PackageID      string          `bson:"packageId" json:"packageId"`
	OrderNumber    string          `bson:"orderNumber" json:"orderNumber"`
	IntegrationID  string          `bson:"integrationId" json:"integrationId"`
	StoreID        string          `bson:"storeId" json:"storeId"`
	Status         OrderStatus     `bson:"status" json:"status"`
	Currency       string          `bson:"currency" json:"currency"`
	CargoProvider  string          `bson:"cargoProvider,omitempty" json:"cargoProvider,omitempty"`
	DeliveryType   string          `bson:"deliveryType,omitempty" json:"deliveryType,omitempty"`
	ShippingAddress json.RawMessage `bson:"shippingAddress,omitempty" json:"shippingAddress,omitempty"`
	InvoiceAddress  json.RawMessage `bson:"invoiceAddress,omitempty" json:"invoiceAddress,omitempty"`
	Items          []OrderItem     `bson:"items" json:"items"`
	WaybillNumber  string          `bson:"waybillNumber,omitempty" json:"waybillNumber,omitempty"`
	CreatedAt      time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time       `bson:"updatedAt" json:"updatedAt"`
	DomainEvents   []DomainEvent   `bson:"-" json:"-"`
}

// OrderItem is one order line. Items are never deleted; cancellation is
// recorded in place. SET components carry their parent's product id.
type OrderItem struct {
	ID             string     `bson:"id" json:"id"`
	ProductID      string     `bson:"productId" json:"productId"`
	Barcode        string     `bson:"barcode" json:"barcode"`
	StockCode      string     `bson:"stockCode,omitempty" json:"stockCode,omitempty"`
	ContentID      string     `bson:"contentId,omitempty" json:"contentId,omitempty"`
	Quantity       int        `bson:"quantity" json:"quantity"`
	UnitPrice      Money      `bson:"unitPrice" json:"unitPrice"`
	VATRate        float64    `bson:"vatRate" json:"vatRate"`
	Status         ItemStatus `bson:"status" json:"status"`
	CancelReason   string     `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	IsSetComponent bool       `bson:"isSetComponent" json:"isSetComponent"`
	SetProductID   string     `bson:"setProductId,omitempty" json:"setProductId,omitempty"`
	Reservations   []ShelfReservation `bson:"reservations,omitempty" json:"reservations,omitempty"`
}

// ShelfReservation records which shelf a reserved quantity came from, so
// cancellation and picking release/decrement the exact rows reserved.
type ShelfReservation struct {
	ShelfID  string `bson:"shelfId" json:"shelfId"`
	Quantity int    `bson:"quantity" json:"quantity"`
}

// NewOrder creates an order shell; items are attached by the ingestion workflow
func NewOrder(id, packageID, orderNumber, integrationID, storeID, currency string) *Order {
	now := time.Now()
	return &Order{
		ID:            id,
		PackageID:     packageID,
		OrderNumber:   orderNumber,
		IntegrationID: integrationID,
		StoreID:       storeID,
		Status:        OrderCreated,
		Currency:      currency,
		Items:         make([]OrderItem, 0),
		CreatedAt:     now,
		UpdatedAt:     now,
		DomainEvents:  make([]DomainEvent, 0),
	}
}

// TransitionItem moves one item through its state machine
func (o *Order) TransitionItem(itemID string, to ItemStatus) error {
	for i := range o.Items {
		if o.Items[i].ID != itemID {
			continue
		}
		if !o.Items[i].Status.CanTransition(to) {
			return ErrInvalidTransition
		}
		o.Items[i].Status = to
		o.UpdatedAt = time.Now()
		return nil
	}
	return ErrOrderNotFound
}

// CancelItem cancels one item recording the reason
func (o *Order) CancelItem(itemID, reason string) error {
	for i := range o.Items {
		if o.Items[i].ID != itemID {
			continue
		}
		if !o.Items[i].Status.CanTransition(ItemCancelled) {
			return ErrInvalidTransition
		}
		o.Items[i].Status = ItemCancelled
		o.Items[i].CancelReason = reason
		o.UpdatedAt = time.Now()
		return nil
	}
	return ErrOrderNotFound
}

// Item returns the item with the given id, or nil
func (o *Order) Item(itemID string) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// ActiveItems returns items that are not cancelled
func (o *Order) ActiveItems() []OrderItem {
	active := make([]OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		if item.Status != ItemCancelled {
			active = append(active, item)
		}
	}
	return active
}

// AllItemsIn reports whether every non-cancelled item has the given status
func (o *Order) AllItemsIn(status ItemStatus) bool {
	found := false
	for _, item := range o.Items {
		if item.Status == ItemCancelled {
			continue
		}
		if item.Status != status {
			return false
		}
		found = true
	}
	return found
}

// Total sums unit price x quantity across non-cancelled items
func (o *Order) Total() Money {
	total := ZeroMoney(o.Currency)
	for _, item := range o.Items {
		if item.Status == ItemCancelled {
			continue
		}
		line := item.UnitPrice.Multiply(item.Quantity)
		if sum, err := total.Add(line); err == nil {
			total = sum
		}
	}
	return total
}

// AddDomainEvent records an event for outbox publication
func (o *Order) AddDomainEvent(event DomainEvent) {
	o.DomainEvents = append(o.DomainEvents, event)
}

// ClearDomainEvents clears recorded events after they are persisted
func (o *Order) ClearDomainEvents() {
	o.DomainEvents = make([]DomainEvent, 0)
}
