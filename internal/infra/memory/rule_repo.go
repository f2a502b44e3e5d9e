package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leobui/alertflow/internal/domain"
)

type ruleKey struct {
	tenant domain.TenantID
	id     domain.RuleID
}

type RuleRepository struct {
	mu    sync.RWMutex
	rules map[ruleKey]domain.Rule
}

func NewRuleRepository() *RuleRepository {
	return &RuleRepository{rules: make(map[ruleKey]domain.Rule)}
}

func (r *RuleRepository) Create(ctx context.Context, rule *domain.Rule) error {
	if err := domain.RequireTenant(rule.TenantID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	r.rules[ruleKey{tenant: rule.TenantID, id: rule.ID}] = *rule
	return nil
}

func (r *RuleRepository) GetByID(ctx context.Context, tenant domain.TenantID, id domain.RuleID) (*domain.Rule, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[ruleKey{tenant: tenant, id: id}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rule, nil
}

func (r *RuleRepository) ListByProfile(ctx context.Context, tenant domain.TenantID, profileID string) ([]domain.Rule, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}
	return r.list(tenant, func(rule domain.Rule) bool {
		return rule.ProfileID == profileID
	}), nil
}

func (r *RuleRepository) ListActiveBySymbol(ctx context.Context, tenant domain.TenantID, symbol string) ([]domain.Rule, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}
	return r.list(tenant, func(rule domain.Rule) bool {
		return rule.Symbol == symbol && rule.Status == domain.RuleActive
	}), nil
}

func (r *RuleRepository) UpdateStatus(ctx context.Context, tenant domain.TenantID, id domain.RuleID, status domain.RuleStatus) error {
	if err := domain.RequireTenant(tenant); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := ruleKey{tenant: tenant, id: id}
	rule, ok := r.rules[key]
	if !ok {
		return domain.ErrNotFound
	}
	rule.Status = status
	rule.UpdatedAt = time.Now()
	r.rules[key] = rule
	return nil
}

func (r *RuleRepository) list(tenant domain.TenantID, match func(domain.Rule) bool) []domain.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rules []domain.Rule
	for key, rule := range r.rules {
		if key.tenant != tenant || !match(rule) {
			continue
		}
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].CreatedAt.Before(rules[j].CreatedAt) })
	return rules
}
