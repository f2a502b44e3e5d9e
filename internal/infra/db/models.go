package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/leobui/alertflow/internal/domain"
)

type tenantModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	Status    string    `gorm:"not null;default:active"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (tenantModel) TableName() string { return "tenants" }

type profileModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProfileID string    `gorm:"primaryKey"`
	FirstName string
	LastName  string
	Email     string
	Channels  []domain.Channel         `gorm:"serializer:json"`
	History   []domain.BehavioralEvent `gorm:"serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (profileModel) TableName() string { return "profiles" }

type ruleModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProfileID string    `gorm:"not null"`
	Symbol    string    `gorm:"not null;index:idx_rules_worker,priority:1"`
	AlertType string    `gorm:"not null"`
	Source    string    `gorm:"not null"`
	Operator  string    `gorm:"not null"`
	Threshold string    `gorm:"not null"`
	Status    string    `gorm:"not null;index:idx_rules_worker,priority:2"`
	Frequency string    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ruleModel) TableName() string { return "alert_rules" }

type instrumentModel struct {
	ID        int64      `gorm:"primaryKey"`
	TenantID  *uuid.UUID `gorm:"type:uuid;uniqueIndex:uq_instrument_symbol,priority:1"`
	Symbol    string     `gorm:"not null;uniqueIndex:uq_instrument_symbol,priority:2"`
	Name      string     `gorm:"not null"`
	Type      string     `gorm:"not null"`
	Sector    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (instrumentModel) TableName() string { return "instruments" }

type marketStateModel struct {
	Symbol      string `gorm:"primaryKey;size:20"`
	Price       string `gorm:"not null"`
	LastUpdated time.Time
}

func (marketStateModel) TableName() string { return "market_snapshot" }

type graphNodeModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind      string    `gorm:"primaryKey;size:20"`
	Key       string    `gorm:"primaryKey"`
	Label     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (graphNodeModel) TableName() string { return "graph_nodes" }

type graphEdgeModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind      string    `gorm:"primaryKey;size:20"`
	FromKind  string    `gorm:"primaryKey;size:20"`
	FromKey   string    `gorm:"primaryKey"`
	ToKind    string    `gorm:"primaryKey;size:20;index:idx_graph_edges_to,priority:1"`
	ToKey     string    `gorm:"primaryKey;index:idx_graph_edges_to,priority:2"`
	Weight    float64   `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (graphEdgeModel) TableName() string { return "graph_edges" }

type deliveryModel struct {
	ID               int64     `gorm:"primaryKey"`
	TenantID         uuid.UUID `gorm:"type:uuid;not null;index:idx_delivery_occurrence,priority:1"`
	SourceID         string    `gorm:"not null;index:idx_delivery_occurrence,priority:2"`
	ProfileID        string    `gorm:"not null;index:idx_delivery_occurrence,priority:3"`
	Channel          string    `gorm:"not null;index:idx_delivery_occurrence,priority:4"`
	Status           string    `gorm:"not null"`
	ProviderResponse string
	AttemptedAt      time.Time `gorm:"not null"`
	CompletedAt      *time.Time
}

func (deliveryModel) TableName() string { return "delivery_log" }
