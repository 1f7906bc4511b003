package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kozaktomas/face-attendance/internal/database"
)

const identityColumns = `id, external_id, name, gender, class_tags, embedding IS NOT NULL, created_at`

func scanIdentity(row scannable) (*database.Identity, error) {
	var i database.Identity
	var tags, createdAt string
	if err := row.Scan(&i.ID, &i.ExternalID, &i.Name, &i.Gender, &tags, &i.Enrolled, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &i.ClassTags); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode class tags of identity %d", i.ID)
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	i.CreatedAt = t
	return &i, nil
}

func (s *Store) getIdentity(ctx context.Context, where string, arg any) (*database.Identity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE `+where, arg)
	i, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get identity")
	}
	return i, nil
}

func (s *Store) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	return s.getIdentity(ctx, "id = ?", id)
}

func (s *Store) GetIdentityByExternalID(ctx context.Context, externalID string) (*database.Identity, error) {
	return s.getIdentity(ctx, "external_id = ?", externalID)
}

func (s *Store) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list identities")
	}
	defer rows.Close()

	var out []database.Identity
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan identity")
		}
		out = append(out, *i)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate identities")
}

// ListEnrolled decodes each stored embedding. Undecodable values are
// reported per record through Malformed.
func (s *Store) ListEnrolled(ctx context.Context) ([]database.EnrolledFace, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM identities WHERE embedding IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list enrolled")
	}
	defer rows.Close()

	var out []database.EnrolledFace
	for rows.Next() {
		var face database.EnrolledFace
		var raw string
		if err := rows.Scan(&face.IdentityID, &raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan enrolled face")
		}
		if err := json.Unmarshal([]byte(raw), &face.Embedding); err != nil {
			face.Embedding = nil
			face.Malformed = err
		}
		out = append(out, face)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate enrolled faces")
}

func (s *Store) CreateIdentity(ctx context.Context, identity *database.Identity) error {
	tags, err := encodeTags(identity.ClassTags)
	if err != nil {
		return err
	}
	createdAt := identity.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO identities (external_id, name, gender, class_tags, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		identity.ExternalID, identity.Name, identity.Gender, tags, formatTime(createdAt), formatTime(createdAt),
	)
	if isUniqueViolation(err) {
		return database.ErrDuplicateIdentity
	}
	if err != nil {
		return eris.Wrap(err, "sqlite: insert identity")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: last insert id")
	}
	identity.ID = id
	return nil
}

func (s *Store) SaveEmbedding(ctx context.Context, id int64, embedding []float32) error {
	b, err := json.Marshal(embedding)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal embedding")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE identities SET embedding = ?, updated_at = ? WHERE id = ?`,
		string(b), formatTime(time.Now()), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save embedding %d", id)
	}
	return checkRowsAffected(res)
}

// AddClassTag appends tag to the JSON array unless an element already equals it.
func (s *Store) AddClassTag(ctx context.Context, id int64, tag string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE identities
		SET class_tags = json_insert(class_tags, '$[#]', ?), updated_at = ?
		WHERE id = ? AND NOT EXISTS (SELECT 1 FROM json_each(identities.class_tags) WHERE value = ?)
	`, tag, formatTime(time.Now()), id, tag)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: add class tag %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}
