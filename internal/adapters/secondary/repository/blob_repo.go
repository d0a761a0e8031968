package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jupiterclapton/bestfit/internal/core/domain"
	"github.com/jupiterclapton/bestfit/internal/core/ports"
)

// Version courante du schéma du blob. v0 = tableau nu historique
// (layout AsyncStorage d'origine, sans champ de version), v1 = enveloppe.
const schemaVersion = 1

// DTO internes pour mapper le JSON proprement sans polluer le Domain avec
// des tags. Le compteur de likes n'est PAS persisté : il est dérivé de
// liked_by à chaque lecture.
type postDTO struct {
	ID            string    `json:"id"`
	AuthorID      string    `json:"author_id"`
	AuthorName    string    `json:"author_name"`
	AuthorPhoto   string    `json:"author_photo"`
	MediaRef      string    `json:"media_ref"`
	Caption       string    `json:"caption"`
	LocationLabel string    `json:"location_label"`
	LikedBy       []string  `json:"liked_by"`
	CreatedAt     time.Time `json:"created_at"`
}

type collectionDTO struct {
	SchemaVersion int       `json:"schema_version"`
	Posts         []postDTO `json:"posts"`
}

// BlobRepo persiste la collection complète dans UN blob nommé du
// BlobStore. Implémente ports.PostCollectionRepository.
type BlobRepo struct {
	blobs ports.BlobStore
	key   string
}

func NewBlobRepo(blobs ports.BlobStore, key string) *BlobRepo {
	return &BlobRepo{blobs: blobs, key: key}
}

// Load lit et décode la collection. Blob absent -> collection vide.
// Blob corrompu -> collection vide AUSSI, mais l'erreur est logguée :
// dégrader en silence serait masquer une perte de données.
func (r *BlobRepo) Load(ctx context.Context) ([]*domain.Post, error) {
	data, ok, err := r.blobs.Read(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("blob read %q: %w", r.key, err)
	}
	if !ok || len(data) == 0 {
		return []*domain.Post{}, nil
	}

	dtos, err := decode(data)
	if err != nil {
		slog.Error("post collection blob is corrupt, falling back to empty",
			"key", r.key, "error", fmt.Errorf("%w: %v", domain.ErrCorruptState, err))
		return []*domain.Post{}, nil
	}

	posts := make([]*domain.Post, len(dtos))
	for i, d := range dtos {
		posts[i] = toDomain(d)
	}
	return posts, nil
}

// Save réécrit le blob entier, toujours au format v1.
func (r *BlobRepo) Save(ctx context.Context, posts []*domain.Post) error {
	env := collectionDTO{
		SchemaVersion: schemaVersion,
		Posts:         make([]postDTO, len(posts)),
	}
	for i, p := range posts {
		env.Posts[i] = toDTO(p)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal post collection: %w", err)
	}
	if err := r.blobs.Write(ctx, r.key, data); err != nil {
		return fmt.Errorf("blob write %q: %w", r.key, err)
	}
	return nil
}

func (r *BlobRepo) Clear(ctx context.Context) error {
	return r.blobs.Delete(ctx, r.key)
}

// --- CODEC ---

// decode accepte les deux générations de layout : l'enveloppe versionnée,
// et le tableau nu hérité (fallback pour ne pas jeter les données d'un
// client antérieur à l'ajout de schema_version).
func decode(data []byte) ([]postDTO, error) {
	if first := firstNonSpace(data); first == '[' {
		var bare []postDTO
		if err := json.Unmarshal(data, &bare); err != nil {
			return nil, err
		}
		return bare, nil
	}

	var env collectionDTO
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.SchemaVersion > schemaVersion {
		return nil, fmt.Errorf("unsupported schema version %d", env.SchemaVersion)
	}
	return env.Posts, nil
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}

func toDTO(p *domain.Post) postDTO {
	return postDTO{
		ID:            p.ID,
		AuthorID:      p.AuthorID,
		AuthorName:    p.AuthorName,
		AuthorPhoto:   p.AuthorPhoto,
		MediaRef:      p.MediaRef,
		Caption:       p.Caption,
		LocationLabel: p.LocationLabel,
		LikedBy:       p.LikedBy,
		CreatedAt:     p.CreatedAt,
	}
}

func toDomain(d postDTO) *domain.Post {
	likedBy := d.LikedBy
	if likedBy == nil {
		likedBy = []string{}
	}
	return &domain.Post{
		ID:            d.ID,
		AuthorID:      d.AuthorID,
		AuthorName:    d.AuthorName,
		AuthorPhoto:   d.AuthorPhoto,
		MediaRef:      d.MediaRef,
		Caption:       d.Caption,
		LocationLabel: d.LocationLabel,
		LikedBy:       likedBy,
		CreatedAt:     d.CreatedAt,
	}
}
