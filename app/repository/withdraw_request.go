package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-lesson-payments/app/entity"
)

var ErrWithdrawRequestNotFound = errors.New("withdraw request not found")

const withdrawColumns = `id, amount, status, notes, requested_by, processed_by,
			requested_at, processed_at, updated_at`

type WithdrawFilter struct {
	HasStatus bool
	Status    entity.WithdrawStatus
	Limit     int32
	Offset    int32
}

type WithdrawTransition struct {
	ID          uint64
	From        entity.WithdrawStatus
	To          entity.WithdrawStatus
	Notes       *string
	ProcessedBy *string
	At          time.Time
}

type WithdrawRequestRepository struct {
	db DBTX
}

func NewWithdrawRequestRepository(db DBTX) *WithdrawRequestRepository {
	return &WithdrawRequestRepository{db: db}
}

func (r *WithdrawRequestRepository) Create(ctx context.Context, request *entity.WithdrawRequest) error {
	query := `
		INSERT INTO withdraw_requests (
			amount, status, notes, requested_by, processed_by, requested_at, processed_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		request.Amount,
		int32(request.Status),
		nullableStringValue(request.Notes),
		nullableStringValue(request.RequestedBy),
		nullableStringValue(request.ProcessedBy),
		request.RequestedAt,
		nullableTimeValue(request.ProcessedAt),
		request.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	request.ID = uint64(id)
	return nil
}

// Transition is a compare-and-swap on status.
func (r *WithdrawRequestRepository) Transition(ctx context.Context, t WithdrawTransition) (bool, error) {
	query := `
		UPDATE withdraw_requests SET
			status = ?,
			notes = COALESCE(?, notes),
			processed_by = COALESCE(?, processed_by),
			processed_at = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		int32(t.To),
		nullableStringValue(t.Notes),
		nullableStringValue(t.ProcessedBy),
		t.At,
		t.At,
		t.ID,
		int32(t.From),
	)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

func (r *WithdrawRequestRepository) FindByID(ctx context.Context, id uint64) (*entity.WithdrawRequest, error) {
	query := `SELECT ` + withdrawColumns + ` FROM withdraw_requests WHERE id = ?`

	request := &entity.WithdrawRequest{}
	if err := scanWithdrawRequest(r.db.QueryRowContext(ctx, query, id), request); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return request, nil
}

func (r *WithdrawRequestRepository) List(ctx context.Context, filter WithdrawFilter) ([]*entity.WithdrawRequest, error) {
	query := `SELECT ` + withdrawColumns + ` FROM withdraw_requests`
	args := make([]interface{}, 0, 3)
	if filter.HasStatus {
		query += " WHERE status = ?"
		args = append(args, int32(filter.Status))
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.WithdrawRequest, 0)
	for rows.Next() {
		item := &entity.WithdrawRequest{}
		if err := scanWithdrawRequest(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *WithdrawRequestRepository) SumAmountByStatuses(ctx context.Context, statuses ...entity.WithdrawStatus) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}

	args := make([]interface{}, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, int32(status))
	}
	query := `SELECT COALESCE(SUM(amount), 0) FROM withdraw_requests WHERE status IN (` + placeholders(len(statuses)) + `)`

	var total int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&total)
	return total, err
}

func scanWithdrawRequest(scan rowScanner, request *entity.WithdrawRequest) error {
	var status int32
	var notes sql.NullString
	var requestedBy sql.NullString
	var processedBy sql.NullString
	var processedAt sql.NullTime

	err := scan.Scan(
		&request.ID,
		&request.Amount,
		&status,
		&notes,
		&requestedBy,
		&processedBy,
		&request.RequestedAt,
		&processedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return err
	}

	request.Status = entity.WithdrawStatus(status)
	request.Notes = stringPtrFromNull(notes)
	request.RequestedBy = stringPtrFromNull(requestedBy)
	request.ProcessedBy = stringPtrFromNull(processedBy)
	request.ProcessedAt = timePtrFromNull(processedAt)
	return nil
}
