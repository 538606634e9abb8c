package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/arklim/admin-panel-api/internal/core/domain"
	"github.com/arklim/admin-panel-api/internal/core/port"
)

const auditTable = adminSchema + ".audit_logs"

// AuditLogRepository implements port.AuditLogRepository using PostgreSQL.
type AuditLogRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditLogRepository wires a PostgreSQL-backed audit trail.
func NewAuditLogRepository(exec pgExecutor) *AuditLogRepository {
	return &AuditLogRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Record makes the repository usable as an audit sink directly. Missing
// identifiers and timestamps are filled in before the row is written.
func (r *AuditLogRepository) Record(ctx context.Context, entry domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.Insert(ctx, entry)
}

// Insert appends an entry to the audit trail.
func (r *AuditLogRepository) Insert(ctx context.Context, entry domain.AuditEntry) error {
	var details []byte
	if entry.Details != nil {
		encoded, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		details = encoded
	}

	stmt, args, err := r.builder.Insert(auditTable).
		Columns("id", "action", "user_id", "details", "ip_address", "user_agent", "created_at").
		Values(entry.ID, entry.Action, entry.UserID, details, entry.IPAddress, entry.UserAgent, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit entry sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// List returns audit entries newest first, with the acting user joined in
// when the account still exists.
func (r *AuditLogRepository) List(ctx context.Context, filter port.AuditFilter) ([]domain.AuditLog, error) {
	query := r.builder.
		Select(
			"a.id",
			"a.action",
			"a.user_id",
			"a.details",
			"a.ip_address",
			"a.user_agent",
			"a.created_at",
			"u.id",
			"u.email",
			"u.first_name",
			"u.last_name",
			"u.role",
		).
		From(auditTable + " a").
		LeftJoin(usersTable + " u ON u.id = a.user_id").
		OrderBy("a.created_at DESC")

	if filter.Action != "" {
		query = query.Where(squirrel.Eq{"a.action": filter.Action})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list audit entries sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0)
	for rows.Next() {
		var (
			log        domain.AuditLog
			details    []byte
			actorID    sql.NullString
			actorEmail sql.NullString
			firstName  sql.NullString
			lastName   sql.NullString
			actorRole  sql.NullString
		)

		if err := rows.Scan(
			&log.Entry.ID,
			&log.Entry.Action,
			&log.Entry.UserID,
			&details,
			&log.Entry.IPAddress,
			&log.Entry.UserAgent,
			&log.Entry.CreatedAt,
			&actorID,
			&actorEmail,
			&firstName,
			&lastName,
			&actorRole,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		if len(details) > 0 {
			if err := json.Unmarshal(details, &log.Entry.Details); err != nil {
				return nil, fmt.Errorf("decode audit details: %w", err)
			}
		}

		if actorID.Valid {
			actor := domain.User{
				ID:    actorID.String,
				Email: actorEmail.String,
				Role:  domain.Role(actorRole.String),
			}
			if firstName.Valid {
				value := firstName.String
				actor.FirstName = &value
			}
			if lastName.Valid {
				value := lastName.String
				actor.LastName = &value
			}
			log.Actor = &actor
		}

		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return logs, nil
}

// Count reports how many entries match the filter, ignoring pagination.
func (r *AuditLogRepository) Count(ctx context.Context, filter port.AuditFilter) (int, error) {
	query := r.builder.Select("COUNT(*)").From(auditTable)

	if filter.Action != "" {
		query = query.Where(squirrel.Eq{"action": filter.Action})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count audit entries sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("scan audit count: %w", err)
	}

	return int(count), nil
}

var _ port.AuditLogRepository = (*AuditLogRepository)(nil)
var _ port.AuditRecorder = (*AuditLogRepository)(nil)
