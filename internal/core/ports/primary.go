package ports

import (
	"context"

	"github.com/jupiterclapton/bestfit/internal/core/domain"
)

// CreatePostCmd porte tout le contexte nécessaire à une création :
// l'utilisateur courant est un paramètre explicite, pas un lookup ambiant.
type CreatePostCmd struct {
	Author        domain.CurrentUser
	MediaRef      string
	Caption       string
	LocationLabel string // déjà résolu côté client, sentinelle si vide
}

// PostStore est LE cœur : la collection ordonnée de posts, ses mutations
// et ses vues filtrées. Toutes les mutations sont sérialisées derrière un
// unique verrou écrivain (voir services.PostStore).
type PostStore interface {
	CreatePost(ctx context.Context, cmd CreatePostCmd) (*domain.Post, error)
	ToggleLike(ctx context.Context, postID, userID string) (*domain.Post, error)
	DeletePost(ctx context.Context, postID, userID string) error

	// CascadeAuthorPhoto réécrit AuthorPhoto sur tous les posts de l'auteur
	// (rattrapage de la copie dénormalisée). Retourne le nombre touché.
	CascadeAuthorPhoto(ctx context.Context, authorID, newPhotoRef string) (int, error)

	// DeleteByAuthor retire tous les posts de l'auteur en UNE opération
	// atomique et purge l'auteur des ensembles LikedBy restants.
	DeleteByAuthor(ctx context.Context, authorID string) (int, error)

	// ClearAll vide la collection entière (action administrative).
	ClearAll(ctx context.Context) error

	// Feed : collection complète, ordre de création (plus récent d'abord).
	Feed(ctx context.Context) ([]*domain.Post, error)

	// PostsByAuthor : sous-séquence authorID == userID, ordre relatif préservé.
	PostsByAuthor(ctx context.Context, authorID string) ([]*domain.Post, error)
}

// ProfileService orchestre l'annuaire de profils et les cascades vers le
// store. Les échecs des collaborateurs distants remontent en
// domain.ErrCollaboratorUnavailable.
type ProfileService interface {
	Profile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdatePhoto(ctx context.Context, userID, photoRef string) error
	DeleteAccount(ctx context.Context, userID string) error
}
