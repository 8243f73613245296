package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mindbridge/companion/backend/internal/model/chat"
	"github.com/mindbridge/companion/backend/internal/model/mood"
	"github.com/mindbridge/companion/backend/internal/model/user"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore persists to a SQLite database through database/sql.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite has a single writer; one connection also keeps ":memory:"
	// databases from splitting across the pool.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func dsn(path string) string {
	pragmas := "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if path == ":memory:" {
		return "file::memory:?" + pragmas
	}
	return "file:" + path + "?" + pragmas + "&_pragma=journal_mode(WAL)"
}

// Migrate applies the schema. It is idempotent.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateConversation inserts a conversation owned by userID.
func (s *SQLiteStore) CreateConversation(ctx context.Context, userID string, title *string) (chat.Conversation, error) {
	now := s.now()
	conv := chat.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     cloneString(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO conversations (id, user_id, title, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)`,
		conv.ID, conv.UserID, nullString(conv.Title), formatTime(now), formatTime(now))
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

const conversationColumns = `id, user_id, title, mood_at_start, mood_at_end, is_archived, created_at, updated_at`

// GetConversation loads a conversation by id.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (chat.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Conversation{}, ErrNotFound
	}
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the user's active conversations by recency.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string, limit, offset int) ([]chat.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+conversationColumns+`
        FROM conversations
        WHERE user_id = ? AND is_archived = 0
        ORDER BY updated_at DESC
        LIMIT ? OFFSET ?`, userID, sqlLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]chat.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// TouchConversation bumps updated_at.
func (s *SQLiteStore) TouchConversation(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return requireRow(res)
}

// SetTitleIfEmpty only writes when no title exists, so concurrent or repeated
// calls cannot overwrite an assigned title.
func (s *SQLiteStore) SetTitleIfEmpty(ctx context.Context, id, title string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
        UPDATE conversations SET title = ?
        WHERE id = ? AND (title IS NULL OR title = '')`, title, id)
	if err != nil {
		return false, fmt.Errorf("set conversation title: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set conversation title: %w", err)
	}
	return n > 0, nil
}

// ArchiveConversation flags a conversation as archived.
func (s *SQLiteStore) ArchiveConversation(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE conversations SET is_archived = 1, updated_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("archive conversation: %w", err)
	}
	return requireRow(res)
}

// RecordConversationMood fills mood_at_start when NULL and always updates mood_at_end.
func (s *SQLiteStore) RecordConversationMood(ctx context.Context, id string, rating int) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE conversations
        SET mood_at_start = COALESCE(mood_at_start, ?), mood_at_end = ?
        WHERE id = ?`, rating, rating, id)
	if err != nil {
		return fmt.Errorf("record conversation mood: %w", err)
	}
	return requireRow(res)
}

// CreateMessage inserts an immutable message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if !msg.Role.Valid() {
		return chat.Message{}, fmt.Errorf("%w: %q", ErrInvalidRole, msg.Role)
	}
	msg.ID = uuid.NewString()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO messages (id, conversation_id, role, content, is_crisis_flagged, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, string(msg.Role), msg.Content, msg.IsCrisisFlagged, formatTime(msg.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return chat.Message{}, ErrNotFound
		}
		return chat.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

const messageColumns = `id, conversation_id, role, content, is_crisis_flagged, created_at`

// RecentMessages returns the newest messages, oldest first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	return s.queryMessages(ctx, `
        SELECT `+messageColumns+` FROM (
            SELECT seq, `+messageColumns+` FROM messages
            WHERE conversation_id = ?
            ORDER BY seq DESC LIMIT ?
        ) ORDER BY seq ASC`, conversationID, sqlLimit(limit))
}

// ListMessages pages through a conversation chronologically.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]chat.Message, error) {
	return s.queryMessages(ctx, `
        SELECT `+messageColumns+` FROM messages
        WHERE conversation_id = ?
        ORDER BY seq ASC LIMIT ? OFFSET ?`, conversationID, sqlLimit(limit), offset)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]chat.Message, 0)
	for rows.Next() {
		var (
			msg       chat.Message
			role      string
			createdAt string
		)
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &msg.IsCrisisFlagged, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = chat.Role(role)
		if msg.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountMessages reports how many messages a conversation holds.
func (s *SQLiteStore) CountMessages(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// RecordCrisisEvent appends an audit event.
func (s *SQLiteStore) RecordCrisisEvent(ctx context.Context, event chat.CrisisEvent) (chat.CrisisEvent, error) {
	event.ID = uuid.NewString()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO crisis_events (id, user_id, conversation_id, message_id, trigger_type, severity, pattern, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.UserID, event.ConversationID, nullString(event.MessageID),
		event.Trigger, event.Severity, event.Pattern, formatTime(event.CreatedAt))
	if err != nil {
		return chat.CrisisEvent{}, fmt.Errorf("insert crisis event: %w", err)
	}
	return event, nil
}

// ListCrisisEvents returns the user's audit trail, oldest first.
func (s *SQLiteStore) ListCrisisEvents(ctx context.Context, userID string) ([]chat.CrisisEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, conversation_id, message_id, trigger_type, severity, pattern, created_at
        FROM crisis_events WHERE user_id = ? ORDER BY seq ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list crisis events: %w", err)
	}
	defer rows.Close()

	events := make([]chat.CrisisEvent, 0)
	for rows.Next() {
		var (
			event     chat.CrisisEvent
			messageID sql.NullString
			createdAt string
		)
		if err := rows.Scan(&event.ID, &event.UserID, &event.ConversationID, &messageID,
			&event.Trigger, &event.Severity, &event.Pattern, &createdAt); err != nil {
			return nil, fmt.Errorf("scan crisis event: %w", err)
		}
		if messageID.Valid {
			event.MessageID = &messageID.String
		}
		if event.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// RecordMood stores a mood entry.
func (s *SQLiteStore) RecordMood(ctx context.Context, entry mood.Entry) (mood.Entry, error) {
	entry.ID = uuid.NewString()
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = s.now()
	}
	if entry.EmotionTags == nil {
		entry.EmotionTags = []string{}
	}
	tags, err := json.Marshal(entry.EmotionTags)
	if err != nil {
		return mood.Entry{}, fmt.Errorf("encode emotion tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO mood_entries (id, user_id, rating, emotion_tags, note, recorded_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.Rating, string(tags), entry.Note, formatTime(entry.RecordedAt))
	if err != nil {
		return mood.Entry{}, fmt.Errorf("insert mood entry: %w", err)
	}
	return entry, nil
}

// RecentMoods returns the newest entries first.
func (s *SQLiteStore) RecentMoods(ctx context.Context, userID string, limit int) ([]mood.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, user_id, rating, emotion_tags, note, recorded_at
        FROM mood_entries WHERE user_id = ?
        ORDER BY recorded_at DESC, seq DESC LIMIT ?`, userID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query mood entries: %w", err)
	}
	defer rows.Close()

	entries := make([]mood.Entry, 0)
	for rows.Next() {
		var (
			entry      mood.Entry
			tags       string
			recordedAt string
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Rating, &tags, &entry.Note, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan mood entry: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &entry.EmotionTags); err != nil {
			return nil, fmt.Errorf("decode emotion tags: %w", err)
		}
		if entry.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CompleteCheckIn records a completed check-in.
func (s *SQLiteStore) CompleteCheckIn(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO check_ins (user_id, completed_at) VALUES (?, ?)`, userID, formatTime(at))
	if err != nil {
		return fmt.Errorf("insert check-in: %w", err)
	}
	return nil
}

// CheckInDays returns the completion times recorded for the user.
func (s *SQLiteStore) CheckInDays(ctx context.Context, userID string) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT completed_at FROM check_ins WHERE user_id = ? ORDER BY completed_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query check-ins: %w", err)
	}
	defer rows.Close()

	days := make([]time.Time, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		t, err := parseTime(raw)
		if err != nil {
			return nil, err
		}
		days = append(days, t)
	}
	return days, rows.Err()
}

// UpsertUser creates or updates a profile.
func (s *SQLiteStore) UpsertUser(ctx context.Context, u user.User) (user.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO users (id, display_name, timezone, created_at) VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, timezone = excluded.timezone`,
		u.ID, u.DisplayName, u.Timezone, formatTime(u.CreatedAt))
	if err != nil {
		return user.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return s.GetUser(ctx, u.ID)
}

// GetUser loads a profile.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (user.User, error) {
	var (
		u         user.User
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, display_name, timezone, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.DisplayName, &u.Timezone, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, ErrNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return user.User{}, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (chat.Conversation, error) {
	var (
		conv                 chat.Conversation
		title                sql.NullString
		moodStart, moodEnd   sql.NullInt64
		createdAt, updatedAt string
	)
	if err := row.Scan(&conv.ID, &conv.UserID, &title, &moodStart, &moodEnd, &conv.IsArchived, &createdAt, &updatedAt); err != nil {
		return chat.Conversation{}, err
	}
	if title.Valid {
		conv.Title = &title.String
	}
	if moodStart.Valid {
		v := int(moodStart.Int64)
		conv.MoodAtStart = &v
	}
	if moodEnd.Valid {
		v := int(moodEnd.Int64)
		conv.MoodAtEnd = &v
	}
	var err error
	if conv.CreatedAt, err = parseTime(createdAt); err != nil {
		return chat.Conversation{}, err
	}
	if conv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return chat.Conversation{}, err
	}
	return conv, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", raw, err)
	}
	return t, nil
}
