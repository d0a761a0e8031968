package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jupiterclapton/bestfit/internal/core/domain"
	"github.com/jupiterclapton/bestfit/internal/core/ports"
)

// Timeout par appel vers l'annuaire : on ne laisse jamais un collaborateur
// lent bloquer indéfiniment un handler.
const directoryTimeout = 5 * time.Second

// ProfileService orchestre l'annuaire de profils (distant) et les cascades
// de dénormalisation vers le PostStore (local). L'ordre des écritures est
// volontaire : d'abord la copie canonique dans l'annuaire, ensuite le
// rattrapage des copies dénormalisées — et aucun appel distant ne se fait
// sous le verrou du store.
type ProfileService struct {
	directory ports.ProfileDirectory
	posts     ports.PostStore
	publisher ports.EventPublisher
}

func NewProfileService(dir ports.ProfileDirectory, posts ports.PostStore, pub ports.EventPublisher) *ProfileService {
	return &ProfileService{directory: dir, posts: posts, publisher: pub}
}

// Profile lit la fiche canonique {name, email, phone, photoRef}.
func (s *ProfileService) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, directoryTimeout)
	defer cancel()

	profile, err := s.directory.Get(ctx, userID)
	if err != nil {
		return nil, asCollaboratorErr(err)
	}
	return profile, nil
}

// UpdatePhoto change la photo de profil et propage la nouvelle référence
// sur tous les posts de l'utilisateur.
func (s *ProfileService) UpdatePhoto(ctx context.Context, userID, photoRef string) error {
	if photoRef == "" {
		return fmt.Errorf("%w: photo reference is required", domain.ErrValidation)
	}

	// 1. Copie canonique d'abord. Si l'annuaire échoue, on n'a RIEN touché
	// localement : pas de cascade orpheline.
	dirCtx, cancel := context.WithTimeout(ctx, directoryTimeout)
	defer cancel()
	if err := s.directory.SetPhoto(dirCtx, userID, photoRef); err != nil {
		return asCollaboratorErr(err)
	}

	// 2. Rattrapage des copies dénormalisées (atomique côté store)
	touched, err := s.posts.CascadeAuthorPhoto(ctx, userID, photoRef)
	if err != nil {
		return err
	}
	slog.Info("profile photo cascade applied", "user_id", userID, "posts_touched", touched)

	// 3. Notification best effort
	if err := s.publisher.PublishPhotoUpdated(ctx, userID, photoRef); err != nil {
		slog.Error("publish profile.photo.updated failed", "user_id", userID, "error", err)
	}
	return nil
}

// DeleteAccount supprime le compte : cascade sur les posts d'abord,
// puis la fiche annuaire. La suppression des posts passe en premier : si
// l'annuaire échoue ensuite, re-tenter l'opération reste sûr (idempotent).
func (s *ProfileService) DeleteAccount(ctx context.Context, userID string) error {
	removed, err := s.posts.DeleteByAuthor(ctx, userID)
	if err != nil {
		return err
	}
	slog.Info("account posts cascade applied", "user_id", userID, "posts_removed", removed)

	dirCtx, cancel := context.WithTimeout(ctx, directoryTimeout)
	defer cancel()
	if err := s.directory.Delete(dirCtx, userID); err != nil {
		return asCollaboratorErr(err)
	}

	if err := s.publisher.PublishAccountDeleted(ctx, userID); err != nil {
		slog.Error("publish account.deleted failed", "user_id", userID, "error", err)
	}
	return nil
}

// asCollaboratorErr traduit les échecs techniques de l'annuaire en erreur
// du domaine. Un "pas trouvé" reste un pas trouvé ; tout le reste (timeout,
// réseau, pool) devient CollaboratorUnavailable.
func asCollaboratorErr(err error) error {
	if errors.Is(err, domain.ErrProfileNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrCollaboratorUnavailable, err)
}
