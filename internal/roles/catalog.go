package roles

import (
	"errors"
	"fmt"

	"github.com/shaiso/Consilium/internal/domain"
)

// ErrUnknownRole — роль отсутствует в каталоге.
var ErrUnknownRole = errors.New("unknown role")

// Catalog — реестр определений ролей.
//
// Каталог внедряется в Graph Builder и воркеры, что позволяет тестам
// подставлять фиктивные роли без глобального состояния.
type Catalog interface {
	// Get возвращает определение роли по ID.
	Get(roleID string) (*Definition, error)

	// All возвращает все роли каталога в фиксированном порядке.
	All() []*Definition
}

// StaticCatalog — каталог на фиксированном наборе определений.
type StaticCatalog struct {
	order []string
	byID  map[string]*Definition
}

// NewStaticCatalog создаёт каталог из переданных определений,
// сохраняя их порядок.
func NewStaticCatalog(defs ...*Definition) *StaticCatalog {
	c := &StaticCatalog{byID: make(map[string]*Definition, len(defs))}
	for _, def := range defs {
		c.order = append(c.order, def.ID)
		c.byID[def.ID] = def
	}
	return c
}

// Get возвращает определение роли по ID.
func (c *StaticCatalog) Get(roleID string) (*Definition, error) {
	def, ok := c.byID[roleID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, roleID)
	}
	return def, nil
}

// All возвращает все роли каталога.
func (c *StaticCatalog) All() []*Definition {
	defs := make([]*Definition, 0, len(c.order))
	for _, id := range c.order {
		defs = append(defs, c.byID[id])
	}
	return defs
}

// IDs возвращает идентификаторы всех ролей каталога.
func IDs(c Catalog) []string {
	defs := c.All()
	ids := make([]string, len(defs))
	for i, def := range defs {
		ids[i] = def.ID
	}
	return ids
}

// WorkflowRole конвертирует определение в роль графа.
func (d *Definition) WorkflowRole() domain.WorkflowRole {
	return domain.WorkflowRole{
		ID:                  d.ID,
		Name:                d.Name,
		Expertise:           append([]string(nil), d.Expertise...),
		Tools:               append([]string(nil), d.Tools...),
		ContextRequirements: append([]string(nil), d.ContextRequirements...),
		OutputFormat:        d.OutputFormat,
	}
}
