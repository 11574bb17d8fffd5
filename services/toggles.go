package services

import (
	"github.com/storebridge/storebridge/config"
	"github.com/storebridge/storebridge/models"
)

// CommandEnabled reports whether the connection settings allow this command
// type to flow. Customer sync and ping have no toggle and are always on.
func CommandEnabled(conn *config.ConnectionConfig, commandType models.CommandType) bool {
	switch commandType {
	case models.CommandUpsertProduct, models.CommandUpsertVariant,
		models.CommandUpsertCategory, models.CommandUpsertBrand,
		models.CommandUpsertProductQuantities, models.CommandUpsertQuantityTransaction:
		return conn.EnableReceiveProducts
	case models.CommandUpsertOrder, models.CommandUpsertOrderStatus:
		return conn.EnableReceiveOrders
	case models.CommandUpsertCustomer, models.CommandPing:
		return true
	default:
		return false
	}
}
