package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leobui/alertflow/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrRuleNotFound      = errors.New("rule not found")
	ErrInvalidTransition = errors.New("invalid rule status transition")
)

// RuleRegistry owns rule creation and lifecycle. Rule identity is derived
// from content, so registering the same logical rule twice is a no-op
// that returns the existing identity.
type RuleRegistry struct {
	rules    domain.RuleRepository
	profiles domain.ProfileRepository
	logger   *zap.Logger
}

func NewRuleRegistry(rules domain.RuleRepository, profiles domain.ProfileRepository, logger *zap.Logger) *RuleRegistry {
	return &RuleRegistry{rules: rules, profiles: profiles, logger: logger}
}

func (r *RuleRegistry) Register(ctx context.Context, tenant domain.TenantID, profileID, symbol, alertType string, source domain.RuleSource, frequency domain.Frequency, cond domain.Condition) (domain.RuleID, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		r.logger.Warn("register rejected, no tenant context")
		return "", err
	}
	if err := cond.Validate(); err != nil {
		return "", err
	}
	profileID = strings.TrimSpace(profileID)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	alertType = strings.ToUpper(strings.TrimSpace(alertType))
	if profileID == "" || symbol == "" || alertType == "" {
		return "", fmt.Errorf("%w: profile, symbol and alert type are required", domain.ErrInvalidCondition)
	}
	if frequency != domain.FrequencyOnce && frequency != domain.FrequencyRecurring {
		return "", fmt.Errorf("%w: unknown frequency %q", domain.ErrInvalidCondition, frequency)
	}

	if _, err := r.profiles.Get(ctx, tenant, profileID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("%w: profile %s", domain.ErrNotFound, profileID)
		}
		return "", err
	}

	id := domain.RuleIdentity(tenant, profileID, symbol, alertType, frequency, cond)

	existing, err := r.rules.GetByID(ctx, tenant, id)
	if err == nil {
		r.logger.Debug("rule already registered", zap.String("rule_id", existing.ID))
		return existing.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	rule := &domain.Rule{
		ID:        id,
		TenantID:  tenant,
		ProfileID: profileID,
		Symbol:    symbol,
		AlertType: alertType,
		Source:    source,
		Condition: cond,
		Status:    domain.RuleActive,
		Frequency: frequency,
	}
	if err := r.rules.Create(ctx, rule); err != nil {
		return "", err
	}

	r.logger.Info("rule registered",
		zap.String("rule_id", id),
		zap.String("symbol", symbol),
		zap.String("profile_id", profileID),
		zap.String("frequency", string(frequency)))
	return id, nil
}

func (r *RuleRegistry) Pause(ctx context.Context, tenant domain.TenantID, id domain.RuleID) error {
	return r.transition(ctx, tenant, id, domain.RuleActive, domain.RulePaused)
}

func (r *RuleRegistry) Resume(ctx context.Context, tenant domain.TenantID, id domain.RuleID) error {
	return r.transition(ctx, tenant, id, domain.RulePaused, domain.RuleActive)
}

// MarkTriggered records a successful dispatch against the rule. A ONCE
// rule moves to its terminal TRIGGERED state; a recurring rule stays
// ACTIVE. Failed dispatches never reach this point, so a ONCE rule whose
// delivery failed stays ACTIVE and may re-attempt on the next qualifying
// state change.
func (r *RuleRegistry) MarkTriggered(ctx context.Context, tenant domain.TenantID, id domain.RuleID) error {
	if err := domain.RequireTenant(tenant); err != nil {
		return err
	}

	rule, err := r.rules.GetByID(ctx, tenant, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrRuleNotFound
		}
		return err
	}
	if rule.Frequency != domain.FrequencyOnce || rule.Status != domain.RuleActive {
		return nil
	}
	if err := r.rules.UpdateStatus(ctx, tenant, id, domain.RuleTriggered); err != nil {
		return err
	}
	r.logger.Info("rule triggered", zap.String("rule_id", id))
	return nil
}

func (r *RuleRegistry) transition(ctx context.Context, tenant domain.TenantID, id domain.RuleID, from, to domain.RuleStatus) error {
	if err := domain.RequireTenant(tenant); err != nil {
		return err
	}

	rule, err := r.rules.GetByID(ctx, tenant, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrRuleNotFound
		}
		return err
	}
	if rule.Status != from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rule.Status, to)
	}
	return r.rules.UpdateStatus(ctx, tenant, id, to)
}
