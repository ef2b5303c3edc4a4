package graph

import (
	"regexp"
	"sort"
	"strings"
)

// Scope — ширина запроса.
type Scope string

const (
	ScopeNarrow        Scope = "narrow"
	ScopeMedium        Scope = "medium"
	ScopeBroad         Scope = "broad"
	ScopeComprehensive Scope = "comprehensive"
)

// Domain — предметная область, обнаруженная в запросе.
type Domain string

const (
	DomainArchitecture  Domain = "architecture"
	DomainDebugging     Domain = "debugging"
	DomainRefactoring   Domain = "refactoring"
	DomainQuality       Domain = "quality"
	DomainSecurity      Domain = "security"
	DomainPerformance   Domain = "performance"
	DomainDocumentation Domain = "documentation"
)

// complexKeywords — фиксированный список "сложных" терминов.
// Количество совпадений — часть эвристики выбора ролей.
var complexKeywords = []string{
	"architecture",
	"refactor",
	"performance",
	"security",
	"comprehensive",
	"scalability",
	"migration",
	"concurrency",
	"optimize",
	"audit",
}

// scopeIndicators — слова, определяющие ширину запроса.
// Порядок проверки: comprehensive → broad → narrow → medium (default).
var (
	comprehensiveIndicators = []string{"comprehensive", "entire", "whole", "everything", "full audit"}
	broadIndicators         = []string{"module", "system", "service", "across"}
	narrowIndicators        = []string{"function", "method", "line", "this one", "single", "typo"}

	// "all" проверяется по границе слова: substring-поиск не видит "all"
	// в конце запроса и ложно срабатывает на "install", "small" и т.п.
	allWord = regexp.MustCompile(`\ball\b`)
)

// domainPatterns — regex-правила обнаружения предметных областей.
var domainPatterns = map[Domain]*regexp.Regexp{
	DomainArchitecture:  regexp.MustCompile(`architect|design|structur|module|pattern|coupling|dependenc`),
	DomainDebugging:     regexp.MustCompile(`fix|debug|bug|error|broken|crash|fail`),
	DomainRefactoring:   regexp.MustCompile(`refactor|restructur|rewrite|clean\s?up|simplif`),
	DomainQuality:       regexp.MustCompile(`quality|test|coverage|lint|maintainab|readab`),
	DomainSecurity:      regexp.MustCompile(`secur|vulnerab|auth|encrypt|exploit|injection|leak`),
	DomainPerformance:   regexp.MustCompile(`performan|slow|optimi|latency|memory|bottleneck|throughput`),
	DomainDocumentation: regexp.MustCompile(`document|comment|readme|docstring`),
}

// Complexity — результат эвристики сложности запроса.
type Complexity struct {
	// Keywords — количество "сложных" терминов в запросе.
	Keywords int

	// Scope — ширина запроса.
	Scope Scope

	// Domains — обнаруженные предметные области (отсортированы для
	// детерминизма).
	Domains []Domain
}

// HasDomain проверяет наличие предметной области.
func (c Complexity) HasDomain(d Domain) bool {
	for _, have := range c.Domains {
		if have == d {
			return true
		}
	}
	return false
}

// Analyze вычисляет эвристику сложности по тексту запроса.
// Функция чистая: одинаковый текст всегда даёт одинаковый результат.
func Analyze(request string) Complexity {
	text := strings.ToLower(request)

	c := Complexity{Scope: classifyScope(text)}

	for _, kw := range complexKeywords {
		if strings.Contains(text, kw) {
			c.Keywords++
		}
	}

	for domain, pattern := range domainPatterns {
		if pattern.MatchString(text) {
			c.Domains = append(c.Domains, domain)
		}
	}
	sort.Slice(c.Domains, func(i, j int) bool { return c.Domains[i] < c.Domains[j] })

	return c
}

// classifyScope определяет ширину запроса по индикаторам.
func classifyScope(text string) Scope {
	for _, ind := range comprehensiveIndicators {
		if strings.Contains(text, ind) {
			return ScopeComprehensive
		}
	}
	for _, ind := range broadIndicators {
		if strings.Contains(text, ind) {
			return ScopeBroad
		}
	}
	if allWord.MatchString(text) {
		return ScopeBroad
	}
	for _, ind := range narrowIndicators {
		if strings.Contains(text, ind) {
			return ScopeNarrow
		}
	}
	return ScopeMedium
}
