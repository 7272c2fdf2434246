package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"despesas/internal/amqp"
	"despesas/internal/core"
	"despesas/internal/ledger"
)

// EventPublisher announces ledger changes. The AMQP client satisfies it;
// tests substitute a recorder.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// LedgerService performs store writes and announces each successful one
// on the event stream. Publishing is best effort: a broker outage is
// logged and never fails the user's request, since the write already
// landed in the store.
type LedgerService struct {
	store  ledger.Store
	events EventPublisher
}

func NewLedgerService(store ledger.Store, events EventPublisher) *LedgerService {
	return &LedgerService{store: store, events: events}
}

func (s *LedgerService) CreateRecord(ctx context.Context, userID string, raw core.RawRecord) (string, error) {
	id, err := s.store.CreateRecord(ctx, userID, raw)
	if err != nil {
		return "", fmt.Errorf("create record: %w", err)
	}
	s.publish(ctx, userID, id, amqp.ActionRecordCreated)
	return id, nil
}

func (s *LedgerService) UpdateRecord(ctx context.Context, userID, id string, raw core.RawRecord) error {
	if err := s.store.UpdateRecord(ctx, userID, id, raw); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	s.publish(ctx, userID, id, amqp.ActionRecordUpdated)
	return nil
}

func (s *LedgerService) DeleteRecord(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteRecord(ctx, userID, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	s.publish(ctx, userID, id, amqp.ActionRecordDeleted)
	return nil
}

func (s *LedgerService) UpsertBudget(ctx context.Context, userID string, key core.MonthKey, amount decimal.Decimal) error {
	if err := s.store.UpsertBudget(ctx, userID, key, amount); err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	s.publish(ctx, userID, string(key), amqp.ActionBudgetUpserted)
	return nil
}

func (s *LedgerService) publish(ctx context.Context, userID, ref, action string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(userID, ref, action)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"user_id", userID,
			"ref", ref,
			"action", action,
			"error", err)
	}
}
