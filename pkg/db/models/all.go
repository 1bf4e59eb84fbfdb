package models

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&InventoryLocation{},
		&StockMovement{},
		&SupplierConnection{},
		&CatalogItem{},
		&CatalogPriceTier{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&PurchaseOrderPayment{},
		&OutboxEvent{},
	}
}
