package repositories

import (
	"database/sql"
	"fmt"

	"github.com/trackshelf/trackshelf/internal/models"
	"github.com/trackshelf/trackshelf/internal/shared"
)

// TriageRepository persists the append-only triage action log.
type TriageRepository struct {
	db *sql.DB
}

// NewTriageRepository creates a TriageRepository with the given
// database connection.
func NewTriageRepository(db *sql.DB) *TriageRepository {
	return &TriageRepository{db: db}
}

// Create logs a new triage action with a generated ID.
func (r *TriageRepository) Create(action *models.TriageAction) error {
	if action.ID == "" {
		action.ID = shared.GenerateID()
	}
	if err := action.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO triage_actions (
			id, user_id, kind, track_id, track_uri,
			playlist_id, archive_playlist_id, undone, performed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	undone := 0
	if action.Undone {
		undone = 1
	}

	_, err := r.db.Exec(query,
		action.ID,
		action.UserID,
		string(action.Kind),
		action.TrackID,
		action.TrackURI,
		action.PlaylistID,
		action.ArchivePlaylistID,
		undone,
		action.PerformedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert triage action: %w", err)
	}

	return nil
}

// Latest retrieves a user's most recent action that has not been
// undone, or shared.ErrNotFound when the log holds none.
func (r *TriageRepository) Latest(userID string) (*models.TriageAction, error) {
	query := `
		SELECT id, user_id, kind, track_id, track_uri,
		       playlist_id, archive_playlist_id, undone, performed_at
		FROM triage_actions
		WHERE user_id = ? AND undone = 0
		ORDER BY performed_at DESC, id DESC
		LIMIT 1
	`

	return r.scanOne(r.db.QueryRow(query, userID))
}

// MarkUndone flips an action's undone flag.
func (r *TriageRepository) MarkUndone(id string) error {
	result, err := r.db.Exec("UPDATE triage_actions SET undone = 1 WHERE id = ? AND undone = 0", id)
	if err != nil {
		return fmt.Errorf("failed to mark action undone: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: action %s", shared.ErrNotFound, id)
	}

	return nil
}

// List retrieves a user's action log, most recent first.
func (r *TriageRepository) List(userID string, limit int) ([]*models.TriageAction, error) {
	query := `
		SELECT id, user_id, kind, track_id, track_uri,
		       playlist_id, archive_playlist_id, undone, performed_at
		FROM triage_actions
		WHERE user_id = ?
		ORDER BY performed_at DESC, id DESC
	`

	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query triage actions: %w", err)
	}
	defer rows.Close()

	var actions []*models.TriageAction
	for rows.Next() {
		action, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return actions, nil
}

// scanOne scans a single [sql.Row] into a [models.TriageAction].
func (r *TriageRepository) scanOne(row *sql.Row) (*models.TriageAction, error) {
	var (
		action models.TriageAction
		kind   string
		undone int
	)

	err := row.Scan(
		&action.ID, &action.UserID, &kind, &action.TrackID, &action.TrackURI,
		&action.PlaylistID, &action.ArchivePlaylistID, &undone, &action.PerformedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no triage actions", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan triage action: %w", err)
	}

	action.Kind = models.ActionKind(kind)
	action.Undone = undone != 0
	return &action, nil
}

// scanRow scans a row from [sql.Rows] into a [models.TriageAction].
func (r *TriageRepository) scanRow(rows *sql.Rows) (*models.TriageAction, error) {
	var (
		action models.TriageAction
		kind   string
		undone int
	)

	err := rows.Scan(
		&action.ID, &action.UserID, &kind, &action.TrackID, &action.TrackURI,
		&action.PlaylistID, &action.ArchivePlaylistID, &undone, &action.PerformedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan triage action: %w", err)
	}

	action.Kind = models.ActionKind(kind)
	action.Undone = undone != 0
	return &action, nil
}
