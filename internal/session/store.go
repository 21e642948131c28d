package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elicitlabs/elicit/internal/log"
	"github.com/elicitlabs/elicit/internal/prompt"
)

// Store persists sessions and messages in PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewStore creates a session store backed by the given pool.
func NewStore(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

// Create inserts a new session in the questioning state.
func (s *Store) Create(ctx context.Context, ownerID string, domain prompt.Domain) (*Session, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO sessions (owner_id, domain)
		VALUES ($1, $2)
		RETURNING id, owner_id, domain, status, COALESCE(final_brief, ''), final_output, created_at, updated_at`,
		ownerID, string(domain))

	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

// Get loads a session by ID. Returns ErrNotFound when it does not exist.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, domain, status, COALESCE(final_brief, ''), final_output, created_at, updated_at
		FROM sessions
		WHERE id = $1`,
		uuidToPg(id))

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return sess, nil
}

// TransitionStatus advances the session status with a compare-and-swap:
// the update applies only when the stored status still equals expected.
// Returns ErrStatusConflict when another request won the race, and
// ErrNotFound when the session does not exist at all.
func (s *Store) TransitionStatus(ctx context.Context, id uuid.UUID, expected, next Status) error {
	if !expected.CanAdvance(next) {
		return fmt.Errorf("illegal transition %s -> %s", expected, next)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`,
		string(next), uuidToPg(id), string(expected))
	if err != nil {
		return fmt.Errorf("transitioning session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ErrStatusConflict
	}

	s.logger.Debug("session status advanced", "session", id, "from", expected, "to", next)
	return nil
}

// SetBrief persists the synthesized brief.
func (s *Store) SetBrief(ctx context.Context, id uuid.UUID, brief string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions SET final_brief = $1, updated_at = now() WHERE id = $2`,
		brief, uuidToPg(id))
	if err != nil {
		return fmt.Errorf("persisting brief: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetOutput persists the final output JSON.
func (s *Store) SetOutput(ctx context.Context, id uuid.UUID, output []byte) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions SET final_output = $1, updated_at = now() WHERE id = $2`,
		output, uuidToPg(id))
	if err != nil {
		return fmt.Errorf("persisting output: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage appends one transcript entry with the next sequence
// number. The parent session row is locked for the duration of the
// transaction so concurrent appends cannot collide on a sequence number.
func (s *Store) AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string) (*Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Warn("rolling back append", "error", rbErr)
		}
	}()

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT true FROM sessions WHERE id = $1 FOR UPDATE`,
		uuidToPg(sessionID)).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("locking session: %w", err)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO session_messages (session_id, role, content, sequence_number)
		SELECT $1, $2, $3, COALESCE(MAX(sequence_number), 0) + 1
		FROM session_messages
		WHERE session_id = $1
		RETURNING id, session_id, role, content, sequence_number, created_at`,
		uuidToPg(sessionID), role, content)

	msg, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing append: %w", err)
	}
	return msg, nil
}

// Messages returns the full transcript in sequence order.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, role, content, sequence_number, created_at
		FROM session_messages
		WHERE session_id = $1
		ORDER BY sequence_number`,
		uuidToPg(sessionID))
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return msgs, nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var (
		sess   Session
		id     pgtype.UUID
		domain string
		status string
	)
	if err := row.Scan(&id, &sess.OwnerID, &domain, &status, &sess.FinalBrief,
		&sess.FinalOutput, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return nil, err
	}
	sess.ID = pgToUUID(id)
	sess.Domain = prompt.Domain(domain)
	sess.Status = Status(status)
	return &sess, nil
}

func scanMessage(row pgx.Row) (*Message, error) {
	var (
		msg       Message
		id        pgtype.UUID
		sessionID pgtype.UUID
	)
	if err := row.Scan(&id, &sessionID, &msg.Role, &msg.Content,
		&msg.Sequence, &msg.CreatedAt); err != nil {
		return nil, err
	}
	msg.ID = pgToUUID(id)
	msg.SessionID = pgToUUID(sessionID)
	return &msg, nil
}

func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgToUUID(id pgtype.UUID) uuid.UUID {
	return uuid.UUID(id.Bytes)
}
