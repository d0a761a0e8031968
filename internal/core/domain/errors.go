package domain

import "errors"

// --- ERREURS DU DOMAINE ---
// Sentinelles uniques : les adapters traduisent leurs erreurs techniques
// vers celles-ci, et la couche HTTP les mappe vers des codes de statut.
var (
	// ErrValidation : entrée obligatoire absente ou vide (media, légende...)
	ErrValidation = errors.New("invalid input")

	// ErrNotAuthenticated : aucun utilisateur courant dans le contexte
	ErrNotAuthenticated = errors.New("no authenticated user")

	// ErrForbidden : l'acteur n'est pas le propriétaire de la ressource
	ErrForbidden = errors.New("actor is not the resource owner")

	// ErrPostNotFound : le post référencé n'existe pas (ou plus)
	ErrPostNotFound = errors.New("post not found")

	// ErrProfileNotFound : aucun profil pour cet identifiant dans l'annuaire
	ErrProfileNotFound = errors.New("profile not found")

	// ErrCollaboratorUnavailable : un collaborateur distant (annuaire,
	// identité) a échoué ou dépassé son timeout. Jamais levée par le store
	// lui-même : sa persistance est locale.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

	// ErrCorruptState : le blob persisté ne se parse pas. Le repository le
	// loggue et dégrade vers une collection vide, il ne le propage pas.
	ErrCorruptState = errors.New("persisted collection is corrupt")
)
