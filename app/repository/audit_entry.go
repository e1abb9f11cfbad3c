package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
)

// AuditEntryRepository only inserts and reads; entries are never updated or deleted.
type AuditEntryRepository struct {
	db DBTX
}

func NewAuditEntryRepository(db DBTX) *AuditEntryRepository {
	return &AuditEntryRepository{db: db}
}

func (r *AuditEntryRepository) Create(ctx context.Context, entry *entity.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (
			subject_type, subject_id, event, from_state, to_state, detail, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.SubjectType,
		entry.SubjectID,
		entry.Event,
		nullableStringValue(entry.FromState),
		entry.ToState,
		nullableStringValue(entry.Detail),
		entry.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = uint64(id)
	return nil
}

func (r *AuditEntryRepository) ListBySubject(ctx context.Context, subjectType, subjectID string, limit int32) ([]*entity.AuditEntry, error) {
	query := `
		SELECT id, subject_type, subject_id, event, from_state, to_state, detail, created_at
		FROM audit_entries
		WHERE subject_type = ? AND subject_id = ?
		ORDER BY id ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, subjectType, subjectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.AuditEntry, 0)
	for rows.Next() {
		item := &entity.AuditEntry{}
		var fromState sql.NullString
		var detail sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.SubjectType,
			&item.SubjectID,
			&item.Event,
			&fromState,
			&item.ToState,
			&detail,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		item.FromState = stringPtrFromNull(fromState)
		item.Detail = stringPtrFromNull(detail)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
