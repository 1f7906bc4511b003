package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/database"
)

const identityColumns = `id, external_id, name, gender, class_tags, embedding IS NOT NULL, created_at`

func scanIdentity(scanner interface{ Scan(...any) error }) (database.Identity, error) {
	var i database.Identity
	var tags pq.StringArray
	err := scanner.Scan(&i.ID, &i.ExternalID, &i.Name, &i.Gender, &tags, &i.Enrolled, &i.CreatedAt)
	if err != nil {
		return database.Identity{}, err
	}
	i.ClassTags = []string(tags)
	return i, nil
}

// GetIdentity retrieves an identity by ID, returns nil if not found
func (s *Store) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	i, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &i, nil
}

// GetIdentityByExternalID retrieves an identity by roster number, returns nil if not found
func (s *Store) GetIdentityByExternalID(ctx context.Context, externalID string) (*database.Identity, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE external_id = $1`, externalID)
	i, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity by external id: %w", err)
	}
	return &i, nil
}

// ListIdentities returns the whole roster ordered by ID
func (s *Store) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []database.Identity
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return out, nil
}

// ListEnrolled returns the stored embedding of every enrolled identity.
// A value that does not parse is reported on the record, not as an error.
func (s *Store) ListEnrolled(ctx context.Context) ([]database.EnrolledFace, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, embedding::text FROM identities WHERE embedding IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list enrolled: %w", err)
	}
	defer rows.Close()

	var out []database.EnrolledFace
	for rows.Next() {
		var id int64
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan enrolled face: %w", err)
		}

		face := database.EnrolledFace{IdentityID: id}
		var vec pgvector.Vector
		if err := vec.Scan(raw); err != nil {
			face.Malformed = err
		} else {
			face.Embedding = vec.Slice()
		}
		out = append(out, face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrolled faces: %w", err)
	}
	return out, nil
}

// CreateIdentity inserts a new identity and sets its ID
func (s *Store) CreateIdentity(ctx context.Context, identity *database.Identity) error {
	tags := identity.ClassTags
	if tags == nil {
		tags = []string{}
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO identities (external_id, name, gender, class_tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id
	`, identity.ExternalID, identity.Name, identity.Gender, pq.Array(tags), identity.CreatedAt).Scan(&identity.ID)
	if isUniqueViolation(err) {
		return database.ErrDuplicateIdentity
	}
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

// SaveEmbedding stores (or replaces) the face embedding of an identity
func (s *Store) SaveEmbedding(ctx context.Context, id int64, embedding []float32) error {
	result, err := s.pool.Exec(ctx,
		`UPDATE identities SET embedding = $2, updated_at = NOW() WHERE id = $1`,
		id, pgvector.NewVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// AddClassTag appends the tag unless already present. The check and the
// append happen in one statement.
func (s *Store) AddClassTag(ctx context.Context, id int64, tag string) (bool, error) {
	result, err := s.pool.Exec(ctx, `
		UPDATE identities
		SET class_tags = array_append(class_tags, $2), updated_at = NOW()
		WHERE id = $1 AND NOT ($2 = ANY(class_tags))
	`, id, tag)
	if err != nil {
		return false, fmt.Errorf("add class tag: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add class tag: %w", err)
	}
	return n > 0, nil
}
