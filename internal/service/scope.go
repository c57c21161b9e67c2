package service

import (
	"strings"

	"github.com/sandeepkv93/project-tracker-backend/internal/repository"
	"github.com/sandeepkv93/project-tracker-backend/internal/security"
)

// scopeFor is the only place an OwnerScope is built. The owner always comes
// from the verified identity; projectID is the path parameter of nested routes.
func scopeFor(id security.Identity, projectID string) (repository.OwnerScope, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return repository.OwnerScope{}, ErrUnauthorized
	}
	return repository.OwnerScope{OwnerID: id.UserID, ProjectID: strings.TrimSpace(projectID)}, nil
}
