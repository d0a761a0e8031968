package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jupiterclapton/bestfit/internal/core/domain"
)

// DTO interne : tampon entre la base et le domaine (NULLs, types).
type sqlProfile struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	PhotoURL  string    `db:"photo_url"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PostgresDirectory implémente ports.ProfileDirectory sur la table
// profiles. C'est le pendant serveur du document "users/{uid}" de
// l'annuaire distant d'origine : {name, email, phone, photoURL}.
type PostgresDirectory struct {
	db *pgxpool.Pool
}

func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{db: pool}
}

func (d *PostgresDirectory) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	q := `SELECT id, name, email, phone, photo_url, updated_at FROM profiles WHERE id = $1`

	var p sqlProfile
	err := d.db.QueryRow(ctx, q, userID).Scan(
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.PhotoURL, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound // Traduction technique -> Domaine
		}
		return nil, fmt.Errorf("directory: get profile: %w", err)
	}

	return &domain.Profile{
		ID:       p.ID,
		Name:     p.Name,
		Email:    p.Email,
		Phone:    p.Phone,
		PhotoRef: p.PhotoURL,
	}, nil
}

func (d *PostgresDirectory) SetPhoto(ctx context.Context, userID, photoRef string) error {
	q := `UPDATE profiles SET photo_url = @photo_url, updated_at = @updated_at WHERE id = @id`

	args := pgx.NamedArgs{
		"id":         userID,
		"photo_url":  photoRef,
		"updated_at": time.Now().UTC(),
	}

	tag, err := d.db.Exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("directory: set photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (d *PostgresDirectory) Delete(ctx context.Context, userID string) error {
	// Idempotent : supprimer une fiche déjà absente n'est pas une erreur,
	// la cascade de suppression de compte peut être rejouée sans risque.
	_, err := d.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("directory: delete profile: %w", err)
	}
	return nil
}
