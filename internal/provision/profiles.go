package provision

import (
	"context"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
)

// ProfileReconciler envuelve el repositorio de profiles.
type ProfileReconciler struct {
	repo repository.ProfileRepository
}

// NewProfileReconciler crea un reconciler sobre r.
func NewProfileReconciler(r repository.ProfileRepository) *ProfileReconciler {
	return &ProfileReconciler{repo: r}
}

// FindByID retorna (nil, false, nil) si no existe.
func (r *ProfileReconciler) FindByID(ctx context.Context, id string) (*repository.Profile, bool, error) {
	p, err := r.repo.GetByID(ctx, id)
	switch {
	case err == nil:
		return p, true, nil
	case repository.IsNotFound(err):
		return nil, false, nil
	default:
		return nil, false, &LookupError{Target: "profile", Err: err}
	}
}

// Upsert inserta o actualiza email, full_name y role por id.
func (r *ProfileReconciler) Upsert(ctx context.Context, p repository.Profile) error {
	if err := r.repo.Upsert(ctx, p); err != nil {
		return &PersistenceError{UserID: p.ID, Err: err}
	}
	return nil
}

// drifted reporta si el perfil actual difiere del deseado en algún campo reconciliado.
func drifted(current *repository.Profile, want repository.Profile) bool {
	return current == nil ||
		current.Role != want.Role ||
		current.Email != want.Email ||
		current.FullName != want.FullName
}
