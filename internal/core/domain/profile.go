package domain

// CurrentUser est le contexte utilisateur fourni par l'Identity Provider.
// Toujours passé explicitement aux opérations : pas de singleton ambiant.
type CurrentUser struct {
	ID          string // clé stable (e-mail du compte)
	Email       string
	DisplayName string
	PhotoRef    string
}

// Profile est la fiche canonique de l'annuaire de profils.
// La photo dénormalisée sur chaque post doit rattraper PhotoRef
// via la cascade, jamais l'inverse.
type Profile struct {
	ID       string
	Name     string
	Email    string
	Phone    string
	PhotoRef string
}
