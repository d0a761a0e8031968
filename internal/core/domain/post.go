package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocationUnknown est la valeur sentinelle quand la résolution de
// géolocalisation a échoué ou a été refusée côté client.
const LocationUnknown = "unknown location"

// --- ENTITÉ ---

// Post est un élément du fil : une photo, une légende, un lieu, des likes.
// AuthorName et AuthorPhoto sont des copies dénormalisées du profil au
// moment de la création ; seule la cascade photo (profil -> posts) peut
// réécrire AuthorPhoto ensuite.
type Post struct {
	ID            string
	AuthorID      string // clé stable du compte (e-mail)
	AuthorName    string
	AuthorPhoto   string
	MediaRef      string // référence opaque vers l'image capturée
	Caption       string
	LocationLabel string
	LikedBy       []string // sémantique d'ensemble, ordre d'insertion préservé
	CreatedAt     time.Time
}

// --- FACTORY (CONSTRUCTEUR) ---

// NewPost crée une instance valide. C'est le SEUL moyen de créer un post
// proprement (avec ID et validation des invariants).
func NewPost(author CurrentUser, mediaRef, caption, locationLabel string) (*Post, error) {
	// 1. Invariants bloquants
	if author.ID == "" {
		return nil, ErrNotAuthenticated
	}
	if strings.TrimSpace(mediaRef) == "" {
		return nil, fmt.Errorf("%w: media is required", ErrValidation)
	}
	if strings.TrimSpace(caption) == "" {
		return nil, fmt.Errorf("%w: caption is required", ErrValidation)
	}

	// 2. Lieu : le label arrive déjà résolu (ou pas) du client
	if strings.TrimSpace(locationLabel) == "" {
		locationLabel = LocationUnknown
	}

	// 3. Identité générée ICI. L'unicité reste vérifiée par le store :
	// un UUID "ne peut pas" collisionner, mais le contrat dit que la
	// génération seule ne suffit pas.
	return &Post{
		ID:            uuid.NewString(),
		AuthorID:      author.ID,
		AuthorName:    author.DisplayName,
		AuthorPhoto:   author.PhotoRef,
		MediaRef:      mediaRef,
		Caption:       strings.TrimSpace(caption),
		LocationLabel: locationLabel,
		LikedBy:       []string{},
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// --- COMPORTEMENTS (MÉTHODES MÉTIER) ---

// LikeCount est toujours dérivé de LikedBy, jamais stocké à part
// (un compteur séparé finit toujours par diverger).
func (p *Post) LikeCount() int { return len(p.LikedBy) }

// IsLikedBy indique si l'utilisateur est déjà dans l'ensemble.
func (p *Post) IsLikedBy(userID string) bool {
	for _, id := range p.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// ToggleLike ajoute l'utilisateur à l'ensemble, ou l'en retire s'il y est
// déjà. Idempotent par paire : deux appels successifs restaurent l'état.
func (p *Post) ToggleLike(userID string) {
	for i, id := range p.LikedBy {
		if id == userID {
			p.LikedBy = append(p.LikedBy[:i], p.LikedBy[i+1:]...)
			return
		}
	}
	p.LikedBy = append(p.LikedBy, userID)
}

// Unlike retire l'utilisateur de l'ensemble sans jamais l'ajouter
// (utilisé par le nettoyage référentiel à la suppression de compte).
func (p *Post) Unlike(userID string) {
	for i, id := range p.LikedBy {
		if id == userID {
			p.LikedBy = append(p.LikedBy[:i], p.LikedBy[i+1:]...)
			return
		}
	}
}

// Clone retourne une copie profonde. Les vues ne reçoivent QUE des copies :
// la collection canonique appartient exclusivement au store. L'ensemble
// LikedBy reste non-nil (sérialise en [] et jamais en null).
func (p *Post) Clone() *Post {
	c := *p
	c.LikedBy = make([]string, len(p.LikedBy))
	copy(c.LikedBy, p.LikedBy)
	return &c
}
