package persons

import (
	"context"

	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
)

// Repository persists person records together with their address.
type Repository interface {
	Create(ctx context.Context, p *models.Person) error
	GetByID(ctx context.Context, id string) (*models.Person, error)
	List(ctx context.Context) ([]*models.Person, error)
	Update(ctx context.Context, p *models.Person) error
	Delete(ctx context.Context, id string) error
}
