package models

// Policy represents the parsed policy.toml validation settings.
type Policy struct {
	Limits  PolicyLimits  `toml:"limits"`
	Content PolicyContent `toml:"content"`
}

type PolicyLimits struct {
	NameMin     int `toml:"name_min"`     // default: 3
	NameMax     int `toml:"name_max"`     // default: 64
	CategoryMin int `toml:"category_min"` // default: 3
	CategoryMax int `toml:"category_max"` // default: 48
	SourceMin   int `toml:"source_min"`   // default: 50
	SourceMax   int `toml:"source_max"`   // default: 40000
	SummaryMax  int `toml:"summary_max"`  // default: 500
}

type PolicyContent struct {
	BaseModule       string   `toml:"base_module"`   // default: autoclean.core.task
	BaseClass        string   `toml:"base_class"`    // default: Task
	ConfigSymbol     string   `toml:"config_symbol"` // default: config
	TaskExt          string   `toml:"task_ext"`      // default: .py
	ForbiddenImports []string `toml:"forbidden_imports"`
}
