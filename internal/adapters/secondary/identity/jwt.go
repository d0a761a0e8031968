package identity

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jupiterclapton/bestfit/internal/core/domain"
)

// UserClaims étend les claims standards JWT avec le profil minimal dont
// les posts ont besoin (instantané dénormalisé à la création).
type UserClaims struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoRef    string `json:"photo_ref,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider implémente ports.IdentityProvider : il VALIDE des tokens
// émis par le service d'identité, il n'en signe jamais. D'où la clé
// publique seule.
type JWTProvider struct {
	publicKey *rsa.PublicKey
}

func NewJWTProvider(publicKeyPEM []byte) (*JWTProvider, error) {
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return &JWTProvider{publicKey: pubKey}, nil
}

// CurrentUser vérifie la signature et reconstruit l'utilisateur courant.
// Token absent ou invalide -> domain.ErrNotAuthenticated.
func (j *JWTProvider) CurrentUser(_ context.Context, bearerToken string) (*domain.CurrentUser, error) {
	if bearerToken == "" {
		return nil, domain.ErrNotAuthenticated
	}

	token, err := jwt.ParseWithClaims(bearerToken, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Sécurité critique : vérifier que l'alg est bien RSA.
		// Empêche les attaques où l'attaquant force l'algo à "None" ou "HS256".
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.publicKey, nil
	})
	if err != nil {
		// Token expiré ou signature invalide : même réponse, pas de détail
		return nil, fmt.Errorf("%w: %v", domain.ErrNotAuthenticated, err)
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, domain.ErrNotAuthenticated
	}

	return &domain.CurrentUser{
		ID:          claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		PhotoRef:    claims.PhotoRef,
	}, nil
}
