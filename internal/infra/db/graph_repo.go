package db

import (
	"context"

	"github.com/leobui/alertflow/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GraphRepository backs the relationship graph with adjacency tables.
type GraphRepository struct {
	db *gorm.DB
}

func NewGraphRepository(db *gorm.DB) *GraphRepository {
	return &GraphRepository{db: db}
}

func (r *GraphRepository) UpsertNode(ctx context.Context, node domain.GraphNode) error {
	if err := domain.RequireTenant(node.TenantID); err != nil {
		return err
	}
	model := graphNodeModel{
		TenantID: node.TenantID,
		Kind:     string(node.Ref.Kind),
		Key:      node.Ref.Key,
		Label:    node.Label,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "kind"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"label", "updated_at"}),
		}).
		Create(&model).Error
}

func (r *GraphRepository) UpsertEdge(ctx context.Context, edge domain.GraphEdge) error {
	if err := domain.RequireTenant(edge.TenantID); err != nil {
		return err
	}
	model := graphEdgeModel{
		TenantID: edge.TenantID,
		Kind:     string(edge.Kind),
		FromKind: string(edge.From.Kind),
		FromKey:  edge.From.Key,
		ToKind:   string(edge.To.Kind),
		ToKey:    edge.To.Key,
		Weight:   edge.Weight,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"}, {Name: "kind"},
				{Name: "from_kind"}, {Name: "from_key"},
				{Name: "to_kind"}, {Name: "to_key"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"weight", "updated_at"}),
		}).
		Create(&model).Error
}

func (r *GraphRepository) OutEdges(ctx context.Context, tenant domain.TenantID, from domain.NodeRef, kind domain.EdgeKind) ([]domain.GraphEdge, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}
	var models []graphEdgeModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ? AND from_kind = ? AND from_key = ?",
			tenant, string(kind), string(from.Kind), from.Key).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return mapEdgesToDomain(models), nil
}

func (r *GraphRepository) InEdges(ctx context.Context, tenant domain.TenantID, to domain.NodeRef, kind domain.EdgeKind) ([]domain.GraphEdge, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}
	var models []graphEdgeModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ? AND to_kind = ? AND to_key = ?",
			tenant, string(kind), string(to.Kind), to.Key).
		Find(&models).Error; err != nil {
		return nil, err
	}
	return mapEdgesToDomain(models), nil
}

func mapEdgesToDomain(models []graphEdgeModel) []domain.GraphEdge {
	edges := make([]domain.GraphEdge, 0, len(models))
	for _, model := range models {
		edges = append(edges, domain.GraphEdge{
			TenantID:  model.TenantID,
			Kind:      domain.EdgeKind(model.Kind),
			From:      domain.NodeRef{Kind: domain.NodeKind(model.FromKind), Key: model.FromKey},
			To:        domain.NodeRef{Kind: domain.NodeKind(model.ToKind), Key: model.ToKey},
			Weight:    model.Weight,
			CreatedAt: model.CreatedAt,
			UpdatedAt: model.UpdatedAt,
		})
	}
	return edges
}
