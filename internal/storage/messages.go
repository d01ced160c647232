// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/canonical/schema-tenancy/internal/db"
	"github.com/canonical/schema-tenancy/internal/types"
)

// messages only exists inside tenant schemas, the name is left unqualified
// so it resolves through the search_path bound to the request
const messagesTable = "messages"

var messageColumns = []string{"id", "organization_id", "user_id", "content", "metadata", "created_at", "updated_at"}

func scanMessage(row sq.RowScanner) (*types.Message, error) {
	var (
		m        types.Message
		metadata []byte
	)

	if err := row.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Content, &metadata, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		m.Metadata = metadata
	}

	return &m, nil
}

func (s *Storage) ListMessages(ctx context.Context, page, size int64) ([]*types.Message, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListMessages")
	defer span.End()

	pageSize := db.PageSize(size)

	rows, err := s.db.Statement(ctx).
		Select(messageColumns...).
		From(messagesTable).
		OrderBy("created_at DESC", "id DESC").
		Limit(pageSize).
		Offset(db.Offset(page, pageSize)).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*types.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return messages, nil
}

func (s *Storage) CreateMessage(ctx context.Context, m *types.Message) (*types.Message, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateMessage")
	defer span.End()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate message ID: %w", err)
	}

	var metadata any
	if len(m.Metadata) > 0 {
		metadata = string(m.Metadata)
	}

	created, err := scanMessage(
		s.db.Statement(ctx).
			Insert(messagesTable).
			Columns("id", "organization_id", "user_id", "content", "metadata").
			Values(id.String(), m.OrganizationID, m.UserID, m.Content, metadata).
			Suffix("RETURNING id, organization_id, user_id, content, metadata, created_at, updated_at").
			QueryRowContext(ctx),
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			return nil, WrapForeignKeyError(err, "message author")
		}
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	return created, nil
}
