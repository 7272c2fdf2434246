package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"despesas/internal/amqp"
	"despesas/internal/core"
)

type recordingPublisher struct {
	events []*amqp.LedgerEventMessage
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, msg *amqp.LedgerEventMessage) error {
	p.events = append(p.events, msg)
	return p.err
}

func TestLedgerServicePublishesAfterWrite(t *testing.T) {
	store := &fakeStore{}
	pub := &recordingPublisher{}
	svc := NewLedgerService(store, pub)

	id, err := svc.CreateRecord(context.Background(), "u1", core.RawRecord{
		Kind: "expense", Amount: "-5", Date: "2025-06-01",
	})
	if err != nil {
		t.Fatalf("CreateRecord() error: %v", err)
	}
	if id != "fake:1" {
		t.Errorf("CreateRecord() id = %q, want fake:1", id)
	}
	if len(pub.events) != 1 || pub.events[0].Action != amqp.ActionRecordCreated {
		t.Fatalf("published events = %+v, want one record_created", pub.events)
	}

	if err := svc.UpsertBudget(context.Background(), "u1", "2025-06", decimal.NewFromInt(300)); err != nil {
		t.Fatalf("UpsertBudget() error: %v", err)
	}
	if len(pub.events) != 2 || pub.events[1].Action != amqp.ActionBudgetUpserted {
		t.Fatalf("published events = %+v, want budget_upserted second", pub.events)
	}
}

func TestLedgerServicePublishFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{}
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewLedgerService(store, pub)

	if _, err := svc.CreateRecord(context.Background(), "u1", core.RawRecord{
		Kind: "income", Amount: "10", Date: "2025-06-01",
	}); err != nil {
		t.Fatalf("CreateRecord() error = %v, want nil (write landed, publish is best effort)", err)
	}
}

func TestLedgerServiceWithoutPublisher(t *testing.T) {
	svc := NewLedgerService(&fakeStore{}, nil)
	if _, err := svc.CreateRecord(context.Background(), "u1", core.RawRecord{
		Kind: "income", Amount: "10", Date: "2025-06-01",
	}); err != nil {
		t.Fatalf("CreateRecord() error: %v", err)
	}
}
