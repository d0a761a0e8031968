package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jupiterclapton/bestfit/internal/core/domain"
	"github.com/jupiterclapton/bestfit/internal/core/ports"
)

// PostStore implémente ports.PostStore.
//
// Toutes les opérations suivent le même cycle : charger la collection
// complète -> transformer -> sauver la collection complète. Deux cycles
// concurrents sur le même blob s'écraseraient mutuellement (lost update),
// donc TOUT passe derrière un unique mutex : un seul read-modify-write en
// vol à la fois. Les lectures prennent le même verrou pour refléter la
// dernière écriture committée.
//
// Les collaborateurs distants (annuaire, identité) ne sont JAMAIS appelés
// sous ce verrou : leur latence ne doit pas bloquer la sérialisation.
type PostStore struct {
	mu        sync.Mutex
	repo      ports.PostCollectionRepository
	publisher ports.EventPublisher
}

func NewPostStore(repo ports.PostCollectionRepository, pub ports.EventPublisher) *PostStore {
	return &PostStore{repo: repo, publisher: pub}
}

// CreatePost valide, assigne l'identité et insère EN TÊTE de collection
// (contrat "plus récent d'abord").
func (s *PostStore) CreatePost(ctx context.Context, cmd ports.CreatePostCmd) (*domain.Post, error) {
	// 1. Construction + validation hors verrou (pas d'I/O ici)
	post, err := domain.NewPost(cmd.Author, cmd.MediaRef, cmd.Caption, cmd.LocationLabel)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	// 2. L'unicité d'ID est garantie par le store, pas par la génération.
	// Une collision UUID est "impossible" mais pas gratuite à ignorer.
	for containsID(posts, post.ID) {
		post.ID = uuid.NewString()
	}

	// 3. Prepend : index 0, toujours
	posts = append([]*domain.Post{post}, posts...)

	if err := s.repo.Save(ctx, posts); err != nil {
		return nil, err
	}

	// 4. Notification best effort : la donnée est committée, on ne fait
	// pas échouer la création si le broker est lent ou down.
	if err := s.publisher.PublishPostCreated(ctx, post); err != nil {
		slog.Error("publish post.created failed", "post_id", post.ID, "error", err)
	}

	return post.Clone(), nil
}

// ToggleLike ajoute/retire userID de l'ensemble LikedBy du post.
func (s *PostStore) ToggleLike(ctx context.Context, postID, userID string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	post := findByID(posts, postID)
	if post == nil {
		return nil, domain.ErrPostNotFound
	}

	post.ToggleLike(userID)

	if err := s.repo.Save(ctx, posts); err != nil {
		return nil, err
	}
	return post.Clone(), nil
}

// DeletePost retire un post unique. Seul l'auteur peut supprimer : la
// collection n'a pas d'ACL par enregistrement, le contrôle se fait ici.
func (s *PostStore) DeletePost(ctx context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}

	post := findByID(posts, postID)
	if post == nil {
		return domain.ErrPostNotFound
	}
	if post.AuthorID != userID {
		// Aucune écriture n'a eu lieu : la collection reste intacte.
		return domain.ErrForbidden
	}

	kept := posts[:0]
	for _, p := range posts {
		if p.ID != postID {
			kept = append(kept, p)
		}
	}

	if err := s.repo.Save(ctx, kept); err != nil {
		return err
	}

	if err := s.publisher.PublishPostDeleted(ctx, postID); err != nil {
		slog.Error("publish post.deleted failed", "post_id", postID, "error", err)
	}
	return nil
}

// CascadeAuthorPhoto rattrape les copies dénormalisées : la photo canonique
// vit dans l'annuaire de profils, les posts la répliquent. Atomique vis-à-vis
// des autres mutations : un like en vol pendant la cascade ne peut pas être
// perdu, il attend le verrou.
func (s *PostStore) CascadeAuthorPhoto(ctx context.Context, authorID, newPhotoRef string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.repo.Load(ctx)
	if err != nil {
		return 0, err
	}

	touched := 0
	for _, p := range posts {
		if p.AuthorID == authorID {
			p.AuthorPhoto = newPhotoRef
			touched++
		}
	}
	if touched == 0 {
		// Rien à réécrire, on évite un Save inutile
		return 0, nil
	}

	if err := s.repo.Save(ctx, posts); err != nil {
		return 0, err
	}
	return touched, nil
}

// DeleteByAuthor est la cascade de suppression de compte : un seul passage,
// une seule écriture. Purge aussi l'auteur des LikedBy des posts restants
// pour ne pas laisser traîner d'identifiant orphelin.
func (s *PostStore) DeleteByAuthor(ctx context.Context, authorID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.repo.Load(ctx)
	if err != nil {
		return 0, err
	}

	kept := make([]*domain.Post, 0, len(posts))
	removed := 0
	changed := false
	for _, p := range posts {
		if p.AuthorID == authorID {
			removed++
			changed = true
			continue
		}
		if p.IsLikedBy(authorID) {
			p.Unlike(authorID)
			changed = true
		}
		kept = append(kept, p)
	}
	if !changed {
		// L'auteur n'a ni posts ni likes : rien à committer.
		return 0, nil
	}

	if err := s.repo.Save(ctx, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// ClearAll vide le blob entier (le "supprimer tous les posts" du fil).
func (s *PostStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Clear(ctx)
}

// Feed retourne un instantané copié de la collection complète, ordre stocké.
func (s *PostStore) Feed(ctx context.Context) ([]*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return cloneAll(posts), nil
}

// PostsByAuthor filtre la vue "mes posts", ordre relatif préservé.
func (s *PostStore) PostsByAuthor(ctx context.Context, authorID string) ([]*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	own := make([]*domain.Post, 0)
	for _, p := range posts {
		if p.AuthorID == authorID {
			own = append(own, p.Clone())
		}
	}
	return own, nil
}

// --- HELPERS ---

func findByID(posts []*domain.Post, id string) *domain.Post {
	for _, p := range posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func containsID(posts []*domain.Post, id string) bool {
	return findByID(posts, id) != nil
}

func cloneAll(posts []*domain.Post) []*domain.Post {
	out := make([]*domain.Post, len(posts))
	for i, p := range posts {
		out[i] = p.Clone()
	}
	return out
}
