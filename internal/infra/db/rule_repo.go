package db

import (
	"context"
	"fmt"

	"github.com/leobui/alertflow/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) Create(ctx context.Context, rule *domain.Rule) error {
	if err := domain.RequireTenant(rule.TenantID); err != nil {
		return err
	}
	model := mapRuleToModel(*rule)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	rule.CreatedAt = model.CreatedAt
	rule.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *RuleRepository) GetByID(ctx context.Context, tenant domain.TenantID, id domain.RuleID) (*domain.Rule, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}
	var model ruleModel
	if err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenant).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return mapRuleToDomain(model)
}

func (r *RuleRepository) ListByProfile(ctx context.Context, tenant domain.TenantID, profileID string) ([]domain.Rule, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}
	var models []ruleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND profile_id = ?", tenant, profileID).
		Order("created_at").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return mapRulesToDomain(models)
}

func (r *RuleRepository) ListActiveBySymbol(ctx context.Context, tenant domain.TenantID, symbol string) ([]domain.Rule, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}
	var models []ruleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND symbol = ? AND status = ?", tenant, symbol, string(domain.RuleActive)).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return mapRulesToDomain(models)
}

func (r *RuleRepository) UpdateStatus(ctx context.Context, tenant domain.TenantID, id domain.RuleID, status domain.RuleStatus) error {
	if err := domain.RequireTenant(tenant); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&ruleModel{}).
		Where("id = ? AND tenant_id = ?", id, tenant).
		Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapRulesToDomain(models []ruleModel) ([]domain.Rule, error) {
	rules := make([]domain.Rule, 0, len(models))
	for _, model := range models {
		rule, err := mapRuleToDomain(model)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, nil
}

func mapRuleToDomain(model ruleModel) (*domain.Rule, error) {
	operator, err := domain.ParseOperator(model.Operator)
	if err != nil {
		return nil, fmt.Errorf("stored rule %s: %w", model.ID, err)
	}
	threshold, err := decimal.NewFromString(model.Threshold)
	if err != nil {
		return nil, fmt.Errorf("stored rule %s: %w", model.ID, err)
	}
	return &domain.Rule{
		ID:        model.ID,
		TenantID:  model.TenantID,
		ProfileID: model.ProfileID,
		Symbol:    model.Symbol,
		AlertType: model.AlertType,
		Source:    domain.RuleSource(model.Source),
		Condition: domain.Condition{Operator: operator, Value: threshold},
		Status:    domain.RuleStatus(model.Status),
		Frequency: domain.Frequency(model.Frequency),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func mapRuleToModel(rule domain.Rule) ruleModel {
	return ruleModel{
		ID:        rule.ID,
		TenantID:  rule.TenantID,
		ProfileID: rule.ProfileID,
		Symbol:    rule.Symbol,
		AlertType: rule.AlertType,
		Source:    string(rule.Source),
		Operator:  string(rule.Condition.Operator),
		Threshold: rule.Condition.Value.String(),
		Status:    string(rule.Status),
		Frequency: string(rule.Frequency),
	}
}
