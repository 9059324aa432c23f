package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skillloop/skillloop-server/internal/model"
	"github.com/skillloop/skillloop-server/internal/store"
)

// OrderService creates orders atomically with their inventory effects.
type OrderService struct {
	store store.Store
	log   zerolog.Logger
}

func NewOrderService(s store.Store, log zerolog.Logger) *OrderService {
	return &OrderService{store: s, log: log}
}

// CreateOrder decrements inventory for every line item, writes the
// order and accumulates the total into the account's lifetime value,
// all in one transaction. Out-of-stock on any line aborts the whole
// order with no partial decrement.
func (s *OrderService) CreateOrder(ctx context.Context, accountID string, items []model.OrderItem, channel string) (*model.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("order has no items: %w", model.ErrInvalidArgument)
	}

	order := &model.Order{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Channel:   channel,
		CreatedAt: time.Now().UTC(),
	}
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUser(ctx, accountID); err != nil {
			return err
		}
		var total float64
		lines := make([]model.OrderItem, 0, len(items))
		for _, it := range items {
			if it.Qty <= 0 {
				return fmt.Errorf("item %s has non-positive quantity: %w", it.SKU, model.ErrInvalidArgument)
			}
			stock, err := tx.GetInventoryItem(ctx, it.SKU)
			if err != nil {
				return err
			}
			if err := tx.DecrementInventory(ctx, it.SKU, it.Qty); err != nil {
				return err
			}
			// Inventory price is authoritative; the request's unit
			// price only covers items not priced in inventory.
			price := stock.Price
			if price == 0 {
				price = it.UnitPrice
			}
			total += price * float64(it.Qty)
			lines = append(lines, model.OrderItem{SKU: it.SKU, Qty: it.Qty, UnitPrice: price})
		}
		order.Items = lines
		order.Total = total
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		return tx.AddLifetimeValue(ctx, accountID, total)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("order_id", order.ID).Str("account_id", accountID).
		Float64("total", order.Total).Msg("order created")
	return order, nil
}
