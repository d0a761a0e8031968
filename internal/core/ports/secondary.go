package ports

import (
	"context"

	"github.com/jupiterclapton/bestfit/internal/core/domain"
)

// BlobStore est le cache clé/valeur local (équivalent AsyncStorage).
// Read retourne (nil, false, nil) quand la clé n'existe pas.
type BlobStore interface {
	Read(ctx context.Context, key string) (data []byte, ok bool, err error)
	Write(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// PostCollectionRepository charge/sauve la collection ENTIÈRE : le store
// travaille toujours en read-modify-write sur la séquence complète.
type PostCollectionRepository interface {
	// Load retourne une collection vide (jamais nil) si le blob est absent
	// ou corrompu ; la corruption est logguée, pas propagée.
	Load(ctx context.Context) ([]*domain.Post, error)
	Save(ctx context.Context, posts []*domain.Post) error
	Clear(ctx context.Context) error
}

// IdentityProvider valide un token porteur et en extrait l'utilisateur
// courant. L'implémentation du protocole d'authentification (register,
// login, reset) vit ailleurs : ici on ne fait que consommer son résultat.
type IdentityProvider interface {
	CurrentUser(ctx context.Context, bearerToken string) (*domain.CurrentUser, error)
}

// ProfileDirectory est l'annuaire distant id -> fiche profil.
type ProfileDirectory interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	SetPhoto(ctx context.Context, userID, photoRef string) error
	Delete(ctx context.Context, userID string) error
}

// EventPublisher notifie le reste du système. Best effort : un échec de
// publication ne fait jamais échouer l'opération métier (la donnée est
// déjà committée localement).
type EventPublisher interface {
	PublishPostCreated(ctx context.Context, post *domain.Post) error
	PublishPostDeleted(ctx context.Context, postID string) error
	PublishPhotoUpdated(ctx context.Context, userID, photoRef string) error
	PublishAccountDeleted(ctx context.Context, userID string) error
}
