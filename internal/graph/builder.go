package graph

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Consilium/internal/domain"
	"github.com/shaiso/Consilium/internal/roles"
)

// Оценки для планирования: на одну роль. Не являются enforced-бюджетами.
const (
	perRoleDuration = 120 * time.Second
	perRoleTokens   = 4000
)

// Идентификаторы ролей каталога в порядке включения в цепочку.
const (
	RoleArchitect   = "architect"
	RoleSecurity    = "security"
	RoleQuality     = "quality"
	RolePerformance = "performance"
	RoleCoordinator = "coordinator"
)

// passKeys — ключи контекста, передаваемые по каждому ребру без изменений.
var passKeys = []string{"originalQuery", "projectPath", "accumulatedResults"}

// Builder строит WorkflowGraph по тексту запроса.
type Builder struct {
	catalog roles.Catalog
}

// NewBuilder создаёт Builder с указанным каталогом ролей.
func NewBuilder(catalog roles.Catalog) *Builder {
	return &Builder{catalog: catalog}
}

// Build строит граф workflow: выбирает роли по эвристике сложности
// и соединяет их последовательной цепочкой.
//
// Правила выбора:
//   - architect:   область architecture или scope != narrow
//   - security:    область security или keywords > 2
//   - quality:     область quality или scope != narrow
//   - performance: область performance
//   - coordinator: добавляется терминальной ролью, если выбрано больше одной
//   - пустой выбор → fallback на [architect] без coordinator
func (b *Builder) Build(request string) (*domain.WorkflowGraph, error) {
	c := Analyze(request)

	var selected []string

	if c.HasDomain(DomainArchitecture) || c.Scope != ScopeNarrow {
		selected = append(selected, RoleArchitect)
	}
	if c.HasDomain(DomainSecurity) || c.Keywords > 2 {
		selected = append(selected, RoleSecurity)
	}
	if c.HasDomain(DomainQuality) || c.Scope != ScopeNarrow {
		selected = append(selected, RoleQuality)
	}
	if c.HasDomain(DomainPerformance) {
		selected = append(selected, RolePerformance)
	}

	if len(selected) > 1 {
		selected = append(selected, RoleCoordinator)
	}
	if len(selected) == 0 {
		selected = []string{RoleArchitect}
	}

	graphRoles := make([]domain.WorkflowRole, 0, len(selected))
	for _, roleID := range selected {
		def, err := b.catalog.Get(roleID)
		if err != nil {
			return nil, fmt.Errorf("build graph: %w", err)
		}
		graphRoles = append(graphRoles, def.WorkflowRole())
	}

	g := &domain.WorkflowGraph{
		ID:                uuid.New(),
		Name:              fmt.Sprintf("%d-role analysis", len(graphRoles)),
		Description:       describe(c),
		Roles:             graphRoles,
		Edges:             chain(graphRoles),
		EstimatedDuration: time.Duration(len(graphRoles)) * perRoleDuration,
		EstimatedTokens:   len(graphRoles) * perRoleTokens,
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	return g, nil
}

// chain соединяет роли последовательными рёбрами в порядке выбора.
func chain(graphRoles []domain.WorkflowRole) []domain.WorkflowEdge {
	edges := make([]domain.WorkflowEdge, 0, max(len(graphRoles)-1, 0))

	for i := 0; i+1 < len(graphRoles); i++ {
		from, to := graphRoles[i], graphRoles[i+1]
		edges = append(edges, domain.WorkflowEdge{
			From: from.ID,
			To:   to.ID,
			Context: domain.ContextMapping{
				Pass:      append([]string(nil), passKeys...),
				Transform: []string{from.ID + "_analysis"},
				Focus:     append([]string(nil), to.ContextRequirements...),
			},
		})
	}

	return edges
}

// describe строит человекочитаемое описание плана по эвристике.
func describe(c Complexity) string {
	if len(c.Domains) == 0 {
		return fmt.Sprintf("%s-scope analysis", c.Scope)
	}

	names := make([]string, len(c.Domains))
	for i, d := range c.Domains {
		names[i] = string(d)
	}
	return fmt.Sprintf("%s-scope analysis covering %s", c.Scope, strings.Join(names, ", "))
}
