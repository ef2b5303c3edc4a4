package roles

import (
	"fmt"
	"strings"
	"text/template"
)

// Definition — определение роли-специалиста: компетенции, инструменты,
// требования к контексту и шаблон промпта для analysis executor'а.
type Definition struct {
	// ID — идентификатор роли.
	ID string

	// Name — человекочитаемое имя.
	Name string

	// Expertise — области компетенции.
	Expertise []string

	// Tools — имена инструментов, передаваемые analysis executor'у.
	// Для ядра это непрозрачные строки.
	Tools []string

	// ContextRequirements — что роль ожидает получить из контекста
	// предыдущих ролей. Копируются в Focus ребра графа.
	ContextRequirements []string

	// OutputFormat — ожидаемый формат результата.
	OutputFormat string

	prompt *template.Template
}

// PromptData — данные для рендеринга промпта роли.
type PromptData struct {
	// Query — исходный запрос пользователя.
	Query string

	// ProjectPath — путь к анализируемому проекту.
	ProjectPath string

	// Focus — context requirements роли.
	Focus []string

	// PreviousAnalyses — текстовая склейка результатов предыдущих ролей.
	PreviousAnalyses string
}

// NewDefinition создаёт определение роли с шаблоном промпта.
func NewDefinition(id, name string, expertise, tools, contextReqs []string, outputFormat, promptText string) (*Definition, error) {
	tmpl, err := template.New(id).Parse(promptText)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template for role %s: %w", id, err)
	}

	return &Definition{
		ID:                  id,
		Name:                name,
		Expertise:           expertise,
		Tools:               tools,
		ContextRequirements: contextReqs,
		OutputFormat:        outputFormat,
		prompt:              tmpl,
	}, nil
}

// mustDefinition — как NewDefinition, но паникует при невалидном шаблоне.
// Используется только для встроенного каталога.
func mustDefinition(id, name string, expertise, tools, contextReqs []string, outputFormat, promptText string) *Definition {
	def, err := NewDefinition(id, name, expertise, tools, contextReqs, outputFormat, promptText)
	if err != nil {
		panic(err)
	}
	return def
}

// RenderPrompt рендерит промпт роли.
func (d *Definition) RenderPrompt(data PromptData) (string, error) {
	var sb strings.Builder
	if err := d.prompt.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render prompt for role %s: %w", d.ID, err)
	}
	return sb.String(), nil
}
