package service

import (
	"context"
	"errors"
	"time"

	"weddingplanner/internal/model"
	"weddingplanner/internal/repository"
	"weddingplanner/pkg/apperrors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateClientRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone"`
	WeddingDate string `json:"wedding_date"` // YYYY-MM-DD, optional
}

type UpdateClientRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	WeddingDate *string `json:"wedding_date"`
}

// InviteClientRequest creates a portal account for an existing client so
// they can log in and receive in-app notifications.
type InviteClientRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

type ClientResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	WeddingDate *time.Time `json:"wedding_date"`
	HasPortal   bool       `json:"has_portal"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ClientService interface {
	Create(ctx context.Context, plannerID uuid.UUID, req CreateClientRequest) (*ClientResponse, error)
	Get(ctx context.Context, plannerID uuid.UUID, id string) (*ClientResponse, error)
	List(ctx context.Context, plannerID uuid.UUID, page, limit int) ([]ClientResponse, int64, error)
	Update(ctx context.Context, plannerID uuid.UUID, id string, req UpdateClientRequest) (*ClientResponse, error)
	Invite(ctx context.Context, plannerID uuid.UUID, id string, req InviteClientRequest) (*ClientResponse, error)
}

type clientService struct {
	clients repository.ClientRepository
	users   repository.UserRepository
	txMgr   repository.TransactionManager
}

func NewClientService(clients repository.ClientRepository, users repository.UserRepository, txMgr repository.TransactionManager) ClientService {
	return &clientService{clients: clients, users: users, txMgr: txMgr}
}

func (s *clientService) Create(ctx context.Context, plannerID uuid.UUID, req CreateClientRequest) (*ClientResponse, error) {
	client := &model.Client{
		PlannerID: plannerID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	if req.WeddingDate != "" {
		d, err := time.Parse("2006-01-02", req.WeddingDate)
		if err != nil {
			return nil, apperrors.Validation("wedding_date must be YYYY-MM-DD")
		}
		client.WeddingDate = &d
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, apperrors.Store("create client", err)
	}
	return toClientResponse(client), nil
}

func (s *clientService) Get(ctx context.Context, plannerID uuid.UUID, id string) (*ClientResponse, error) {
	client, err := s.findClient(ctx, plannerID, id)
	if err != nil {
		return nil, err
	}
	return toClientResponse(client), nil
}

func (s *clientService) List(ctx context.Context, plannerID uuid.UUID, page, limit int) ([]ClientResponse, int64, error) {
	clients, total, err := s.clients.ListByPlanner(ctx, plannerID, page, limit)
	if err != nil {
		return nil, 0, apperrors.Store("list clients", err)
	}
	out := make([]ClientResponse, 0, len(clients))
	for i := range clients {
		out = append(out, *toClientResponse(&clients[i]))
	}
	return out, total, nil
}

func (s *clientService) Update(ctx context.Context, plannerID uuid.UUID, id string, req UpdateClientRequest) (*ClientResponse, error) {
	client, err := s.findClient(ctx, plannerID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.Email != nil {
		client.Email = *req.Email
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.WeddingDate != nil {
		if *req.WeddingDate == "" {
			client.WeddingDate = nil
		} else {
			d, err := time.Parse("2006-01-02", *req.WeddingDate)
			if err != nil {
				return nil, apperrors.Validation("wedding_date must be YYYY-MM-DD")
			}
			client.WeddingDate = &d
		}
	}
	if err := s.clients.Update(ctx, client); err != nil {
		return nil, apperrors.Store("update client", err)
	}
	return toClientResponse(client), nil
}

func (s *clientService) Invite(ctx context.Context, plannerID uuid.UUID, id string, req InviteClientRequest) (*ClientResponse, error) {
	client, err := s.findClient(ctx, plannerID, id)
	if err != nil {
		return nil, err
	}
	if client.UserID != nil {
		return nil, apperrors.Validation("client already has a portal account")
	}
	if _, err := s.users.GetByEmail(ctx, client.Email); err == nil {
		return nil, apperrors.Validation("email already has an account")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	err = s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		user := &model.User{
			Email:    client.Email,
			Name:     client.Name,
			Password: string(hashed),
			Role:     model.RoleClient,
		}
		if err := s.users.Create(txCtx, user); err != nil {
			return err
		}
		client.UserID = &user.ID
		return s.clients.Update(txCtx, client)
	})
	if err != nil {
		return nil, apperrors.Store("invite client", err)
	}
	return toClientResponse(client), nil
}

func (s *clientService) findClient(ctx context.Context, plannerID uuid.UUID, id string) (*model.Client, error) {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Validation("invalid client id")
	}
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("client", id)
		}
		return nil, apperrors.Store("find client", err)
	}
	if client.PlannerID != plannerID {
		return nil, apperrors.NotFound("client", id)
	}
	return client, nil
}

func toClientResponse(c *model.Client) *ClientResponse {
	return &ClientResponse{
		ID:          c.ID,
		Name:        c.Name,
		Email:       c.Email,
		Phone:       c.Phone,
		WeddingDate: c.WeddingDate,
		HasPortal:   c.UserID != nil,
		CreatedAt:   c.CreatedAt,
	}
}
