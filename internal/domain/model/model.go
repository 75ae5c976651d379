package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type OrderType string

const (
	OrderBuy  OrderType = "buy"
	OrderSell OrderType = "sell"
)

func (t OrderType) Valid() bool {
	return t == OrderBuy || t == OrderSell
}

// Order is a validated, normalized trade order. ID is zero until the store assigns one.
type Order struct {
	ID        int64     `json:"id"         db:"id"`
	Symbol    string    `json:"symbol"     db:"symbol"`
	Price     float64   `json:"price"      db:"price"`
	Quantity  int64     `json:"quantity"   db:"quantity"`
	OrderType OrderType `json:"order_type" db:"order_type"`
}

const EventOrderCreated = "OrderCreated"

type OutboxMessage struct {
	ID        int64
	Topic     string
	Key       string
	EventType string
	Payload   []byte
	Headers   map[string]string
}

// NewOrderCreatedMessage builds the outbox row announcing a stored order.
// The order must already carry its assigned ID.
func NewOrderCreatedMessage(topic string, o *Order) (*OutboxMessage, error) {
	if o.ID == 0 {
		return nil, fmt.Errorf("order created message: order has no id")
	}

	payload, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("order created message: %w", err)
	}

	id := strconv.FormatInt(o.ID, 10)
	return &OutboxMessage{
		Topic:     topic,
		Key:       id,
		EventType: EventOrderCreated,
		Payload:   payload,
		Headers:   map[string]string{"order-id": id, "symbol": o.Symbol},
	}, nil
}
