package repository

import (
	"context"

	"weddingplanner/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentListFilter narrows the registry listing. Zero values mean "no filter".
type DocumentListFilter struct {
	ClientID uuid.UUID
	Type     string
	Page     int
	Limit    int
}

type DocumentRepository interface {
	Create(ctx context.Context, entry *model.DocumentRegistryEntry) error
	List(ctx context.Context, filter DocumentListFilter) ([]model.DocumentRegistryEntry, int64, error)
	// FindPurchaseOrder resolves the canonical bon de commande for a
	// (quote, vendor) pair: type matches, file_url is non-empty. Returns
	// gorm.ErrRecordNotFound when no prior artifact exists.
	FindPurchaseOrder(ctx context.Context, devisID, vendorID uuid.UUID) (*model.DocumentRegistryEntry, error)
	DeleteByDevisID(ctx context.Context, devisID uuid.UUID) error
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, entry *model.DocumentRegistryEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *documentRepository) List(ctx context.Context, filter DocumentListFilter) ([]model.DocumentRegistryEntry, int64, error) {
	var entries []model.DocumentRegistryEntry
	var total int64

	query := GetDB(ctx, r.db).Model(&model.DocumentRegistryEntry{})
	if filter.ClientID != uuid.Nil {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("uploaded_at desc").Offset(offset).Limit(filter.Limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *documentRepository) FindPurchaseOrder(ctx context.Context, devisID, vendorID uuid.UUID) (*model.DocumentRegistryEntry, error) {
	var entry model.DocumentRegistryEntry
	err := GetDB(ctx, r.db).
		Where("type = ? AND devis_id = ? AND vendor_id = ? AND file_url <> ''",
			model.DocTypeBonDeCommande, devisID, vendorID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *documentRepository) DeleteByDevisID(ctx context.Context, devisID uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.DocumentRegistryEntry{}, "devis_id = ?", devisID).Error
}
