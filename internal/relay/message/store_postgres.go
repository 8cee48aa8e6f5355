// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package message

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/campuslink/internal/platform/database/schema"
	"github.com/taibuivan/campuslink/internal/platform/dberr"
	"github.com/taibuivan/campuslink/pkg/slice"
)

// PostgresRepository implements [Repository] as a JSONB document table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed message store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var table = schema.RelayMessage

/*
Create inserts the message document together with its indexed projections.
*/
func (repository *PostgresRepository) Create(context context.Context, message *Message) error {
	document, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("message_encode_failed: %w", err)
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		table.Table, strings.Join(table.Columns(), ", "),
	)

	_, err = repository.db.Exec(context, query,
		message.ID, message.TenantID, message.SenderID, message.RecipientIDs,
		string(message.MessageType), string(message.Status), document,
		message.SentAt, message.ReadAt, message.ExpiresAt,
	)
	return dberr.Wrap(err, "Message", "message_insert")
}

/*
History returns the user's conversation window, newest first.

Description: A message belongs to the user's history when they sent it or
appear in its recipient list. Types and Before narrow the window.
*/
func (repository *PostgresRepository) History(context context.Context, filter Filter) ([]*Message, error) {
	var queryBuilder strings.Builder
	fmt.Fprintf(&queryBuilder, `
		SELECT %s
		FROM %s
		WHERE %s = $1 AND (%s = $2 OR $2 = ANY(%s))`,
		table.Document, table.Table, table.TenantID, table.SenderID, table.RecipientIDs,
	)

	args := []any{filter.TenantID, filter.UserID}
	argID := 3

	if len(filter.Types) > 0 {
		fmt.Fprintf(&queryBuilder, " AND %s = ANY($%d)", table.MessageType, argID)
		args = append(args, slice.Map(filter.Types, func(t Type) string { return string(t) }))
		argID++
	}

	if filter.Before != nil {
		fmt.Fprintf(&queryBuilder, " AND %s < $%d", table.SentAt, argID)
		args = append(args, *filter.Before)
		argID++
	}

	fmt.Fprintf(&queryBuilder, " ORDER BY %s DESC, %s DESC LIMIT $%d", table.SentAt, table.ID, argID)
	args = append(args, filter.Limit)

	rows, err := repository.db.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, dberr.Wrap(err, "Message", "message_history")
	}
	defer rows.Close()

	messages := make([]*Message, 0, filter.Limit)
	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, dberr.Wrap(err, "Message", "message_scan")
		}

		message := &Message{}
		if err := json.Unmarshal(document, message); err != nil {
			return nil, fmt.Errorf("message_decode_failed: %w", err)
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "Message", "message_history")
	}

	return messages, nil
}

/*
MarkRead moves the message to read and appends userID to readBy once.

The first read fixes readAt; later reads by other recipients only extend readBy.
*/
func (repository *PostgresRepository) MarkRead(context context.Context, tenantID, messageID, userID string, at time.Time) (*Message, error) {
	query := fmt.Sprintf(`
		UPDATE %[1]s
		SET %[2]s = 'read',
		    %[3]s = COALESCE(%[3]s, $4),
		    %[4]s = jsonb_set(
		        jsonb_set(
		            jsonb_set(%[4]s, '{status}', '"read"'),
		            '{readAt}', to_jsonb(COALESCE(%[3]s, $4))
		        ),
		        '{readBy}',
		        CASE WHEN COALESCE(%[4]s->'readBy', '[]'::jsonb) @> to_jsonb(ARRAY[$3::text])
		             THEN %[4]s->'readBy'
		             ELSE COALESCE(%[4]s->'readBy', '[]'::jsonb) || to_jsonb(ARRAY[$3::text])
		        END
		    )
		WHERE %[5]s = $1 AND %[6]s = $2 AND $3 = ANY(%[7]s)
		RETURNING %[4]s`,
		table.Table, table.Status, table.ReadAt, table.Document,
		table.ID, table.TenantID, table.RecipientIDs,
	)

	var document []byte
	if err := repository.db.QueryRow(context, query, messageID, tenantID, userID, at).Scan(&document); err != nil {
		return nil, dberr.Wrap(err, "Message", "message_mark_read")
	}

	message := &Message{}
	if err := json.Unmarshal(document, message); err != nil {
		return nil, fmt.Errorf("message_decode_failed: %w", err)
	}
	return message, nil
}
