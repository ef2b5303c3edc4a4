package roles

// DefaultCatalog возвращает встроенный каталог из пяти специалистов.
//
// Промпты — простые шаблоны text/template; построение и парсинг
// результатов analysis executor'а не входят в ответственность ядра.
func DefaultCatalog() *StaticCatalog {
	return NewStaticCatalog(
		mustDefinition(
			"architect",
			"Software Architect",
			[]string{"system design", "module boundaries", "dependency management"},
			[]string{"dependency_graph", "pattern_detector", "code_search"},
			[]string{"project structure", "module responsibilities"},
			"markdown",
			`You are a software architect reviewing a codebase.

Request: {{.Query}}
Project: {{.ProjectPath}}
Focus: {{range .Focus}}{{.}}; {{end}}

{{if .PreviousAnalyses}}Previous analyses:
{{.PreviousAnalyses}}

{{end}}Assess the architecture: layering, coupling, module boundaries and data flow.
Report concrete structural findings with file references.`,
		),
		mustDefinition(
			"security",
			"Security Analyst",
			[]string{"vulnerability analysis", "authentication", "data handling"},
			[]string{"vulnerability_scanner", "code_search", "dependency_graph"},
			[]string{"entry points", "trust boundaries", "architecture findings"},
			"markdown",
			`You are a security analyst reviewing a codebase.

Request: {{.Query}}
Project: {{.ProjectPath}}
Focus: {{range .Focus}}{{.}}; {{end}}

{{if .PreviousAnalyses}}Previous analyses:
{{.PreviousAnalyses}}

{{end}}Identify vulnerabilities, unsafe data handling and missing authorization checks.
Rank findings by severity.`,
		),
		mustDefinition(
			"quality",
			"Quality Engineer",
			[]string{"code quality", "testing", "maintainability"},
			[]string{"complexity_metrics", "code_search", "pattern_detector"},
			[]string{"architecture findings", "risk areas"},
			"markdown",
			`You are a quality engineer reviewing a codebase.

Request: {{.Query}}
Project: {{.ProjectPath}}
Focus: {{range .Focus}}{{.}}; {{end}}

{{if .PreviousAnalyses}}Previous analyses:
{{.PreviousAnalyses}}

{{end}}Evaluate readability, test coverage gaps, duplication and error handling.
List the highest-impact quality improvements.`,
		),
		mustDefinition(
			"performance",
			"Performance Engineer",
			[]string{"profiling", "concurrency", "resource usage"},
			[]string{"complexity_metrics", "dependency_graph", "code_search"},
			[]string{"hot paths", "architecture findings"},
			"markdown",
			`You are a performance engineer reviewing a codebase.

Request: {{.Query}}
Project: {{.ProjectPath}}
Focus: {{range .Focus}}{{.}}; {{end}}

{{if .PreviousAnalyses}}Previous analyses:
{{.PreviousAnalyses}}

{{end}}Find likely bottlenecks: allocation hot spots, blocking calls, N+1 patterns.
Estimate the impact of each finding.`,
		),
		mustDefinition(
			"coordinator",
			"Analysis Coordinator",
			[]string{"synthesis", "prioritization"},
			[]string{"code_search"},
			[]string{"all previous analyses"},
			"markdown",
			`You are the coordinator synthesizing a multi-specialist code review.

Request: {{.Query}}
Project: {{.ProjectPath}}

Specialist analyses:
{{.PreviousAnalyses}}

Merge the findings into a single prioritized report: key risks,
recommended actions and their order. Resolve contradictions explicitly.`,
		),
	)
}
