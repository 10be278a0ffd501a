package service

import (
	"context"
	"errors"
	"time"

	"weddingplanner/internal/model"
	"weddingplanner/internal/repository"
	"weddingplanner/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateVendorRequest struct {
	Name        string `json:"name" binding:"required"`
	Category    string `json:"category"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

type UpdateVendorRequest struct {
	Name        *string `json:"name"`
	Category    *string `json:"category"`
	ContactName *string `json:"contact_name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
}

type VendorResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	ContactName string    `json:"contact_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	CreatedAt   time.Time `json:"created_at"`
}

type VendorService interface {
	Create(ctx context.Context, plannerID uuid.UUID, req CreateVendorRequest) (*VendorResponse, error)
	Get(ctx context.Context, plannerID uuid.UUID, id string) (*VendorResponse, error)
	List(ctx context.Context, plannerID uuid.UUID, category string, page, limit int) ([]VendorResponse, int64, error)
	Update(ctx context.Context, plannerID uuid.UUID, id string, req UpdateVendorRequest) (*VendorResponse, error)
}

type vendorService struct {
	vendors repository.VendorRepository
}

func NewVendorService(vendors repository.VendorRepository) VendorService {
	return &vendorService{vendors: vendors}
}

func (s *vendorService) Create(ctx context.Context, plannerID uuid.UUID, req CreateVendorRequest) (*VendorResponse, error) {
	vendor := &model.Vendor{
		PlannerID:   plannerID,
		Name:        req.Name,
		Category:    req.Category,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
	}
	if err := s.vendors.Create(ctx, vendor); err != nil {
		return nil, apperrors.Store("create vendor", err)
	}
	return toVendorResponse(vendor), nil
}

func (s *vendorService) Get(ctx context.Context, plannerID uuid.UUID, id string) (*VendorResponse, error) {
	vendor, err := s.findVendor(ctx, plannerID, id)
	if err != nil {
		return nil, err
	}
	return toVendorResponse(vendor), nil
}

func (s *vendorService) List(ctx context.Context, plannerID uuid.UUID, category string, page, limit int) ([]VendorResponse, int64, error) {
	vendors, total, err := s.vendors.ListByPlanner(ctx, plannerID, category, page, limit)
	if err != nil {
		return nil, 0, apperrors.Store("list vendors", err)
	}
	out := make([]VendorResponse, 0, len(vendors))
	for i := range vendors {
		out = append(out, *toVendorResponse(&vendors[i]))
	}
	return out, total, nil
}

func (s *vendorService) Update(ctx context.Context, plannerID uuid.UUID, id string, req UpdateVendorRequest) (*VendorResponse, error) {
	vendor, err := s.findVendor(ctx, plannerID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		vendor.Name = *req.Name
	}
	if req.Category != nil {
		vendor.Category = *req.Category
	}
	if req.ContactName != nil {
		vendor.ContactName = *req.ContactName
	}
	if req.Email != nil {
		vendor.Email = *req.Email
	}
	if req.Phone != nil {
		vendor.Phone = *req.Phone
	}
	if req.Address != nil {
		vendor.Address = *req.Address
	}
	if err := s.vendors.Update(ctx, vendor); err != nil {
		return nil, apperrors.Store("update vendor", err)
	}
	return toVendorResponse(vendor), nil
}

func (s *vendorService) findVendor(ctx context.Context, plannerID uuid.UUID, id string) (*model.Vendor, error) {
	vendorID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Validation("invalid vendor id")
	}
	vendor, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("vendor", id)
		}
		return nil, apperrors.Store("find vendor", err)
	}
	if vendor.PlannerID != plannerID {
		return nil, apperrors.NotFound("vendor", id)
	}
	return vendor, nil
}

func toVendorResponse(v *model.Vendor) *VendorResponse {
	return &VendorResponse{
		ID:          v.ID,
		Name:        v.Name,
		Category:    v.Category,
		ContactName: v.ContactName,
		Email:       v.Email,
		Phone:       v.Phone,
		Address:     v.Address,
		CreatedAt:   v.CreatedAt,
	}
}
