package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/christian289/postalert/pkg/forum"
	"github.com/christian289/postalert/pkg/pg"
)

// PgStorage is the Postgres-backed Storage. Collapse-key uniqueness is
// enforced by partial unique indexes over unread rows, so the
// check-then-insert race resolves in the database: the losing insert gets
// a duplicate key error which surfaces as ErrDuplicateUnread.
type PgStorage struct {
	pool *pgxpool.Pool
}

// NewPgStorage wraps a connection pool. The notifications table must exist;
// apply the bundled migrations first.
func NewPgStorage(pool *pgxpool.Pool) (*PgStorage, error) {
	if pool == nil {
		return nil, ErrStorageNil
	}
	return &PgStorage{pool: pool}, nil
}

func (s *PgStorage) Create(ctx context.Context, n Notification) error {
	data, err := EncodePayload(n.Payload)
	if err != nil {
		return err
	}

	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, notification_type, topic_id, post_number, read, read_at, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, int64(n.UserID), int(n.Type), int64(n.TopicID), n.PostNumber, n.Read, n.ReadAt, data, createdAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateUnread
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PgStorage) Update(ctx context.Context, n Notification) error {
	data, err := EncodePayload(n.Payload)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET payload = $2, post_number = $3, created_at = $4
		WHERE id = $1`,
		n.ID, data, n.PostNumber, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStorage) FirstUnread(ctx context.Context, user forum.UserID, topic forum.TopicID, types []Type, postNumber int) (*Notification, error) {
	if len(types) == 0 {
		return nil, ErrNotFound
	}

	query := `
		SELECT id, user_id, notification_type, topic_id, post_number, read, read_at, payload, created_at
		FROM notifications
		WHERE user_id = $1 AND topic_id = $2 AND NOT read AND notification_type = ANY($3)`
	args := []any{int64(user), int64(topic), typeInts(types)}
	if postNumber > 0 {
		query += ` AND post_number = $4`
		args = append(args, postNumber)
	}
	query += ` ORDER BY created_at ASC LIMIT 1`

	return s.queryOne(ctx, query, args...)
}

func (s *PgStorage) LatestOfType(ctx context.Context, user forum.UserID, topic forum.TopicID, postNumber int, t Type) (*Notification, error) {
	return s.queryOne(ctx, `
		SELECT id, user_id, notification_type, topic_id, post_number, read, read_at, payload, created_at
		FROM notifications
		WHERE user_id = $1 AND topic_id = $2 AND post_number = $3 AND notification_type = $4
		ORDER BY created_at DESC LIMIT 1`,
		int64(user), int64(topic), postNumber, int(t),
	)
}

func (s *PgStorage) List(ctx context.Context, user forum.UserID, opts ListOptions) ([]Notification, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, user_id, notification_type, topic_id, post_number, read, read_at, payload, created_at
		FROM notifications
		WHERE user_id = $1`)
	args := []any{int64(user)}

	if opts.OnlyUnread {
		sb.WriteString(` AND NOT read`)
	}
	if len(opts.Types) > 0 {
		args = append(args, typeInts(opts.Types))
		fmt.Fprintf(&sb, ` AND notification_type = ANY($%d)`, len(args))
	}
	sb.WriteString(` ORDER BY created_at DESC`)
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		fmt.Fprintf(&sb, ` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (s *PgStorage) MarkRead(ctx context.Context, user forum.UserID, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET read = TRUE, read_at = now()
		WHERE user_id = $1 AND id = ANY($2) AND NOT read`,
		int64(user), ids,
	)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

func (s *PgStorage) CountUnread(ctx context.Context, user forum.UserID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT read`,
		int64(user),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PgStorage) queryOne(ctx context.Context, query string, args ...any) (*Notification, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notification: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query notification: %w", err)
		}
		return nil, ErrNotFound
	}
	return scanNotification(rows)
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var (
		n       Notification
		userID  int64
		typeInt int
		topicID int64
		rawJSON []byte
	)
	if err := row.Scan(&n.ID, &userID, &typeInt, &topicID, &n.PostNumber, &n.Read, &n.ReadAt, &rawJSON, &n.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	n.UserID = forum.UserID(userID)
	n.Type = Type(typeInt)
	n.TopicID = forum.TopicID(topicID)

	payload, err := DecodePayload(n.Type, rawJSON)
	if err != nil {
		return nil, err
	}
	n.Payload = payload
	return &n, nil
}

func typeInts(types []Type) []int {
	out := make([]int, len(types))
	for i, t := range types {
		out[i] = int(t)
	}
	return out
}
