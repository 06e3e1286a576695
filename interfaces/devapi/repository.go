package devapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"feellog/database"
	"feellog/domain/records"
)

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02 15:04:05.000000000"

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// User is a registered dev API account.
type User struct {
	ID           string
	Email        string
	Nickname     string
	PasswordHash string
	PersonaID    sql.NullString
}

// Record is an uploaded video awaiting or done with analysis.
type Record struct {
	ID        string
	UserID    string
	Status    records.RecordStatus
	CreatedAt time.Time
}

// Repository stores dev API state in SQLite.
type Repository struct {
	db *database.Database
}

func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, s, time.UTC)
}

func (r *Repository) CreateUser(ctx context.Context, email, nickname, passwordHash string, now time.Time) (string, error) {
	id := uuid.NewString()
	var existing int
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM users WHERE email = ? OR nickname = ?", email, nickname).Scan(&existing); err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicate
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO users (id, email, nickname, password_hash, persona_id, created_at) VALUES (?, ?, ?, ?, (SELECT id FROM personas ORDER BY rowid LIMIT 1), ?)",
			id, email, nickname, passwordHash, formatTime(now))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create user %s: %w", email, err)
	}
	return id, nil
}

func (r *Repository) userWhere(ctx context.Context, clause string, arg any) (*User, error) {
	var u User
	err := r.db.ReadDB().QueryRowContext(ctx,
		"SELECT id, email, nickname, password_hash, persona_id FROM users WHERE "+clause, arg).
		Scan(&u.ID, &u.Email, &u.Nickname, &u.PasswordHash, &u.PersonaID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (*User, error) {
	return r.userWhere(ctx, "email = ?", email)
}

func (r *Repository) UserByID(ctx context.Context, id string) (*User, error) {
	return r.userWhere(ctx, "id = ?", id)
}

func (r *Repository) CreateSession(ctx context.Context, userID string, now time.Time) (string, error) {
	token := uuid.NewString()
	if _, err := r.db.WriteDB().ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, created_at) VALUES (?, ?, ?)", token, userID, formatTime(now)); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// SessionUser resolves a session token to its user.
func (r *Repository) SessionUser(ctx context.Context, token string) (*User, error) {
	var userID string
	err := r.db.ReadDB().QueryRowContext(ctx, "SELECT user_id FROM sessions WHERE token = ?", token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.UserByID(ctx, userID)
}

func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.WriteDB().ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

func (r *Repository) SetPersona(ctx context.Context, userID, personaID string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM personas WHERE id = ?", personaID).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("persona %s: %w", personaID, ErrNotFound)
		}
		_, err := tx.ExecContext(ctx, "UPDATE users SET persona_id = ? WHERE id = ?", personaID, userID)
		return err
	})
}

// CreateRecord stores a new upload in the processing state.
func (r *Repository) CreateRecord(ctx context.Context, userID, videoPath string, now time.Time) (records.RecordID, error) {
	id := uuid.NewString()
	if _, err := r.db.WriteDB().ExecContext(ctx,
		"INSERT INTO records (id, user_id, video_path, status, created_at) VALUES (?, ?, ?, ?, ?)",
		id, userID, videoPath, string(records.RecordStatusProcessing), formatTime(now)); err != nil {
		return "", fmt.Errorf("create record: %w", err)
	}
	return records.RecordID(id), nil
}

// LatestRecord returns the user's most recently created record.
func (r *Repository) LatestRecord(ctx context.Context, userID string) (*Record, error) {
	var rec Record
	var status, created string
	err := r.db.ReadDB().QueryRowContext(ctx,
		"SELECT id, user_id, status, created_at FROM records WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		userID).Scan(&rec.ID, &rec.UserID, &status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.Status = records.RecordStatus(status)
	if rec.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &rec, nil
}

type reportCard struct {
	ReportID  string           `json:"report_id"`
	RecordID  records.RecordID `json:"record_id"`
	Title     string           `json:"title"`
	CreatedAt string           `json:"created_at"`
}

// CompleteRecord marks a user's record completed and stores its report card.
// Completing an already completed record changes nothing.
func (r *Repository) CompleteRecord(ctx context.Context, userID string, recordID records.RecordID, now time.Time) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx,
			"SELECT status FROM records WHERE id = ? AND user_id = ?", string(recordID), userID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("record %s: %w", recordID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if records.RecordStatus(status) == records.RecordStatusCompleted {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE records SET status = ?, completed_at = ? WHERE id = ?",
			string(records.RecordStatusCompleted), formatTime(now), string(recordID)); err != nil {
			return err
		}

		card := reportCard{
			ReportID:  uuid.NewString(),
			RecordID:  recordID,
			Title:     "Report " + now.UTC().Format("2006-01-02"),
			CreatedAt: now.UTC().Format(time.RFC3339),
		}
		body, err := json.Marshal(card)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO reports (id, user_id, record_id, card, created_at) VALUES (?, ?, ?, ?, ?)",
			card.ReportID, userID, string(recordID), string(body), formatTime(now))
		return err
	})
}

// RecentReports returns up to limit report cards, newest first.
func (r *Repository) RecentReports(ctx context.Context, userID string, limit int) ([]json.RawMessage, error) {
	rows, err := r.db.ReadDB().QueryContext(ctx,
		"SELECT card FROM reports WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?", userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := []json.RawMessage{}
	for rows.Next() {
		var card string
		if err := rows.Scan(&card); err != nil {
			return nil, err
		}
		cards = append(cards, json.RawMessage(card))
	}
	return cards, rows.Err()
}
