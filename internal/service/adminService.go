package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mcp-events/ticketflow/config"
	repository "github.com/mcp-events/ticketflow/internal/database/postgres"
	"github.com/mcp-events/ticketflow/internal/entity"
)

type adminService struct {
	purchaseRepo repository.PurchaseRepository
	memberRepo   repository.MemberRepository
	cfg          *config.AdminConfig
}

func NewAdminService(
	purchaseRepo repository.PurchaseRepository,
	memberRepo repository.MemberRepository,
	cfg *config.AdminConfig,
) AdminService {
	return &adminService{
		purchaseRepo: purchaseRepo,
		memberRepo:   memberRepo,
		cfg:          cfg,
	}
}

// Login checks the back office credentials and issues a signed token.
func (s *adminService) Login(ctx context.Context, username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password)) == 1
	if !userOK || !passOK {
		return "", entity.ErrUnauthorized
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiration)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	logrus.Infof("Admin %s logged in", username)
	return token, nil
}

// ParseToken validates a token and returns its subject.
func (s *adminService) ParseToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", entity.ErrUnauthorized
	}
	return claims.Subject, nil
}

func (s *adminService) GetPurchases(ctx context.Context) ([]*entity.Purchase, error) {
	return s.purchaseRepo.GetAll(ctx)
}

func (s *adminService) GetEventTickets(ctx context.Context, eventID string) ([]*entity.Ticket, error) {
	return s.purchaseRepo.GetTicketsByEvent(ctx, eventID)
}

// CheckInTicket stamps the ticket once and returns its updated snapshot.
func (s *adminService) CheckInTicket(ctx context.Context, ticketID string) (*entity.Ticket, error) {
	if err := s.purchaseRepo.CheckInTicket(ctx, ticketID, time.Now()); err != nil {
		return nil, err
	}
	return s.purchaseRepo.GetTicket(ctx, ticketID)
}

func (s *adminService) GetMembers(ctx context.Context) ([]*entity.Member, error) {
	return s.memberRepo.GetAll(ctx)
}

func (s *adminService) CreateMember(ctx context.Context, req *CreateMemberRequest) (*entity.Member, error) {
	if _, err := entity.ParseEventDate(req.Birthdate); err != nil {
		return nil, fmt.Errorf("invalid birthdate: %w", err)
	}

	member := &entity.Member{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Surname:   req.Surname,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Birthdate: req.Birthdate,
		Source:    entity.MemberSourceAdmin,
		CreatedAt: time.Now(),
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return member, nil
}
