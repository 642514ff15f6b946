package service

import (
	"context"
	"strings"

	"bloomo-gateway/internal/model"
	"bloomo-gateway/internal/repository"
	"bloomo-gateway/pkg/log"
)

// LeadInput 是留资表单的内容。
type LeadInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Sector string `json:"sector"`
	Lang   string `json:"lang"`
}

// LeadService 定义了留资相关的业务逻辑。
type LeadService interface {
	Capture(ctx context.Context, in LeadInput) (*model.Lead, error)
	// Status 返回该邮箱最近一次留资记录，不存在时返回 nil。
	Status(ctx context.Context, email string) (*model.Lead, error)
}

type leadService struct {
	repo repository.LeadRepository
}

// NewLeadService 创建一个新的 LeadService 实例。
func NewLeadService(repo repository.LeadRepository) LeadService {
	return &leadService{repo: repo}
}

func (s *leadService) Capture(ctx context.Context, in LeadInput) (*model.Lead, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	lead := &model.Lead{
		Email:  email,
		Name:   strings.TrimSpace(in.Name),
		Sector: strings.TrimSpace(in.Sector),
		Lang:   valueOr(in.Lang, "en"),
	}
	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, &StoreError{Op: "create lead", Err: err}
	}
	log.Infow("留资记录已保存", "email", lead.Email, "name", lead.Name, "sector", lead.Sector, "lang", lead.Lang)
	return lead, nil
}

func (s *leadService) Status(ctx context.Context, email string) (*model.Lead, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	lead, err := s.repo.FindLatestByEmail(ctx, email)
	if err != nil {
		return nil, &StoreError{Op: "load lead", Err: err}
	}
	return lead, nil
}
