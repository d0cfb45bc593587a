package cart

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/sliceline-client/pkg/db"
	"github.com/angelmondragon/sliceline-client/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sliceline-client/pkg/errors"
	"github.com/angelmondragon/sliceline-client/pkg/logger"
)

// Repo persists cart records in the embedded sqlite store.
type Repo struct {
	db   *gorm.DB
	logg *logger.Logger
}

func NewRepo(client *db.Client, logg *logger.Logger) (*Repo, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &Repo{db: client.DB(), logg: logg}, nil
}

// NewRepoFromGorm wires a raw connection, used by tests.
func NewRepoFromGorm(conn *gorm.DB, logg *logger.Logger) *Repo {
	return &Repo{db: conn, logg: logg}
}

func (r *Repo) Load(ctx context.Context, ownerID string) (models.CartLines, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).Take(&record, "owner_id = ?", ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		// A row that fails to deserialize is an anomaly worth logging, but it
		// must read as "no cart found", never as a fatal load.
		if r.logg != nil {
			r.logg.Error(ctx, "cart record unreadable, treating as empty", err)
		}
		return nil, nil
	}
	return dropInvalidLines(record.Items), nil
}

func (r *Repo) Save(ctx context.Context, ownerID string, lines models.CartLines) error {
	record := models.CartRecord{OwnerID: ownerID, Items: lines}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "saving cart record")
	}
	return nil
}

func (r *Repo) Clear(ctx context.Context, ownerID string) error {
	err := r.db.WithContext(ctx).
		Delete(&models.CartRecord{}, "owner_id = ?", ownerID).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "clearing cart record")
	}
	return nil
}
