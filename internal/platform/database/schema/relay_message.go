// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns of the message document store.
package schema

// RelayMessageTable represents the 'relay.message' table.
type RelayMessageTable struct {
	Table        string
	ID           string
	TenantID     string
	SenderID     string
	RecipientIDs string
	MessageType  string
	Status       string
	Document     string
	SentAt       string
	ReadAt       string
	ExpiresAt    string
}

// RelayMessage is the schema definition for relay.message.
//
// The full message travels in Document (JSONB); the other columns are indexed
// projections used for history lookups and status transitions.
var RelayMessage = RelayMessageTable{
	Table:        "relay.message",
	ID:           "id",
	TenantID:     "tenantid",
	SenderID:     "senderid",
	RecipientIDs: "recipientids",
	MessageType:  "messagetype",
	Status:       "status",
	Document:     "document",
	SentAt:       "sentat",
	ReadAt:       "readat",
	ExpiresAt:    "expiresat",
}

// Columns returns all column names in insert order.
func (t RelayMessageTable) Columns() []string {
	return []string{
		t.ID, t.TenantID, t.SenderID, t.RecipientIDs, t.MessageType, t.Status, t.Document, t.SentAt, t.ReadAt, t.ExpiresAt,
	}
}
