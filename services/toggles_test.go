package services

import (
	"testing"

	"github.com/storebridge/storebridge/models"
	mock "github.com/storebridge/storebridge/testing"
)

func TestCommandEnabled(t *testing.T) {
	t.Run("Products toggle covers catalog commands", func(t *testing.T) {
		conn := mock.MockConnection()
		conn.EnableReceiveProducts = false

		for _, commandType := range []models.CommandType{
			models.CommandUpsertProduct,
			models.CommandUpsertVariant,
			models.CommandUpsertCategory,
			models.CommandUpsertBrand,
			models.CommandUpsertProductQuantities,
			models.CommandUpsertQuantityTransaction,
		} {
			if CommandEnabled(conn, commandType) {
				t.Errorf("CommandEnabled(%s) = true with products disabled", commandType)
			}
		}
	})

	t.Run("Orders toggle covers order commands", func(t *testing.T) {
		conn := mock.MockConnection()
		conn.EnableReceiveOrders = false

		for _, commandType := range []models.CommandType{
			models.CommandUpsertOrder,
			models.CommandUpsertOrderStatus,
		} {
			if CommandEnabled(conn, commandType) {
				t.Errorf("CommandEnabled(%s) = true with orders disabled", commandType)
			}
		}
	})

	t.Run("Customers and ping always flow", func(t *testing.T) {
		conn := mock.MockConnection()
		conn.EnableReceiveProducts = false
		conn.EnableReceiveOrders = false

		if !CommandEnabled(conn, models.CommandUpsertCustomer) {
			t.Error("CommandEnabled(upsert_customer) = false, want true")
		}
		if !CommandEnabled(conn, models.CommandPing) {
			t.Error("CommandEnabled(ping) = false, want true")
		}
	})

	t.Run("Unknown command is disabled", func(t *testing.T) {
		if CommandEnabled(mock.MockConnection(), models.CommandType("upsert_warehouse")) {
			t.Error("CommandEnabled(unknown) = true, want false")
		}
	})
}
