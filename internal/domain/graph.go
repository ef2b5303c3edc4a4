package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ошибки конструкции графа. Фатальные — не повторяются (retry не имеет смысла).
var (
	// ErrNoStartRole — в графе нет роли без входящих рёбер.
	ErrNoStartRole = errors.New("workflow graph has no start role")

	// ErrMultipleStartRoles — в графе больше одной роли без входящих рёбер.
	ErrMultipleStartRoles = errors.New("workflow graph has multiple start roles")

	// ErrBrokenChain — рёбра не образуют единую цепочку.
	ErrBrokenChain = errors.New("workflow graph edges do not form a single chain")
)

// WorkflowRole — специалист, участвующий в workflow.
//
// Роли берутся из каталога (см. internal/roles) и после включения
// в граф не изменяются.
type WorkflowRole struct {
	// ID — идентификатор роли (architect, security, quality, performance, coordinator).
	ID string `json:"id"`

	// Name — человекочитаемое имя роли.
	Name string `json:"name"`

	// Expertise — области компетенции роли.
	Expertise []string `json:"expertise,omitempty"`

	// Tools — инструменты, которые роль передаёт analysis executor'у.
	Tools []string `json:"tools,omitempty"`

	// ContextRequirements — что роль хочет получить из контекста предыдущих ролей.
	ContextRequirements []string `json:"context_requirements,omitempty"`

	// OutputFormat — ожидаемый формат результата роли.
	OutputFormat string `json:"output_format,omitempty"`
}

// ContextMapping — правило передачи контекста по ребру графа.
type ContextMapping struct {
	// Pass — ключи, передаваемые следующей роли без изменений.
	Pass []string `json:"pass,omitempty"`

	// Transform — выходные ключи завершившейся роли.
	Transform []string `json:"transform,omitempty"`

	// Focus — context requirements следующей роли.
	Focus []string `json:"focus,omitempty"`
}

// WorkflowEdge — ребро графа: порядок и правило передачи контекста.
//
// В текущей топологии (последовательная цепочка) у каждой роли
// не больше одного исходящего ребра.
type WorkflowEdge struct {
	From    string         `json:"from"`
	To      string         `json:"to"`
	Context ContextMapping `json:"context"`
}

// WorkflowGraph — план одной оркестрации.
//
// Строится один раз Graph Builder'ом и после этого не изменяется.
// Граф передаётся внутри каждого WorkflowMessage, чтобы роль
// определяла следующего участника по рёбрам, а не по фиксированной
// глобальной таблице.
type WorkflowGraph struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Roles       []WorkflowRole `json:"roles"`
	Edges       []WorkflowEdge `json:"edges"`

	// EstimatedDuration и EstimatedTokens — оценки для планирования,
	// не являются enforced-бюджетами.
	EstimatedDuration time.Duration `json:"estimated_duration"`
	EstimatedTokens   int           `json:"estimated_tokens"`
}

// HasRole проверяет, участвует ли роль в графе.
func (g *WorkflowGraph) HasRole(roleID string) bool {
	for i := range g.Roles {
		if g.Roles[i].ID == roleID {
			return true
		}
	}
	return false
}

// Role возвращает роль графа по ID.
func (g *WorkflowGraph) Role(roleID string) (*WorkflowRole, bool) {
	for i := range g.Roles {
		if g.Roles[i].ID == roleID {
			return &g.Roles[i], true
		}
	}
	return nil, false
}

// RoleIDs возвращает идентификаторы ролей в порядке включения в граф.
func (g *WorkflowGraph) RoleIDs() []string {
	ids := make([]string, len(g.Roles))
	for i := range g.Roles {
		ids[i] = g.Roles[i].ID
	}
	return ids
}

// StartRole возвращает единственную роль без входящих рёбер.
//
// Отсутствие такой роли (или несколько) — ошибка конструкции графа,
// фатальная и неповторяемая.
func (g *WorkflowGraph) StartRole() (*WorkflowRole, error) {
	incoming := make(map[string]int, len(g.Roles))
	for _, e := range g.Edges {
		incoming[e.To]++
	}

	var start *WorkflowRole
	for i := range g.Roles {
		if incoming[g.Roles[i].ID] == 0 {
			if start != nil {
				return nil, ErrMultipleStartRoles
			}
			start = &g.Roles[i]
		}
	}

	if start == nil {
		return nil, ErrNoStartRole
	}
	return start, nil
}

// NextRole возвращает следующую роль по рёбрам графа.
// Вторым значением возвращает false, если роль терминальная.
func (g *WorkflowGraph) NextRole(roleID string) (string, bool) {
	for _, e := range g.Edges {
		if e.From == roleID {
			return e.To, true
		}
	}
	return "", false
}

// Edge возвращает исходящее ребро роли.
func (g *WorkflowGraph) Edge(fromRole string) (*WorkflowEdge, bool) {
	for i := range g.Edges {
		if g.Edges[i].From == fromRole {
			return &g.Edges[i], true
		}
	}
	return nil, false
}

// Validate проверяет инварианты графа:
// N ролей, N-1 рёбер, единственный корень, единственный лист,
// рёбра образуют одну цепочку.
func (g *WorkflowGraph) Validate() error {
	if len(g.Roles) == 0 {
		return ErrNoStartRole
	}

	if len(g.Edges) != len(g.Roles)-1 {
		return fmt.Errorf("%w: %d roles, %d edges", ErrBrokenChain, len(g.Roles), len(g.Edges))
	}

	start, err := g.StartRole()
	if err != nil {
		return err
	}

	// Обходим цепочку от корня; каждая роль должна встретиться ровно один раз.
	visited := make(map[string]bool, len(g.Roles))
	current := start.ID
	visited[current] = true

	for {
		next, ok := g.NextRole(current)
		if !ok {
			break
		}
		if visited[next] {
			return fmt.Errorf("%w: cycle through %s", ErrBrokenChain, next)
		}
		if !g.HasRole(next) {
			return fmt.Errorf("%w: edge to unknown role %s", ErrBrokenChain, next)
		}
		visited[next] = true
		current = next
	}

	if len(visited) != len(g.Roles) {
		return fmt.Errorf("%w: chain covers %d of %d roles", ErrBrokenChain, len(visited), len(g.Roles))
	}

	return nil
}
