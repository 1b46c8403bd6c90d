package domain

// ValidationPath - какой путь проверки пересечений отработал
type ValidationPath string

const (
	ValidationPathBackend ValidationPath = "backend"
	ValidationPathLocal   ValidationPath = "local"
	ValidationPathNone    ValidationPath = "none"
)

// OverlappingZone - территория, с которой пересекается кандидат (ответ бэкенда)
type OverlappingZone struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// OverlapCheckResult - вердикт сервиса проверки пересечений
type OverlapCheckResult struct {
	HasOverlap       bool              `json:"has_overlap"`
	OverlappingZones []OverlappingZone `json:"overlapping_zones"`
}

// ValidationResult - итог проверки нарисованной границы; форма одинакова для обоих путей.
// Notices - справочные замечания о самой границе, не влияющие на вердикт проверки пересечений.
type ValidationResult struct {
	Errors    []string            `json:"errors"`
	Warnings  []string            `json:"warnings"`
	Notices   []string            `json:"notices,omitempty"`
	Conflicts []string            `json:"conflicts,omitempty"`
	Path      ValidationPath      `json:"path"`
	Backend   *OverlapCheckResult `json:"backend_result,omitempty"`
}

// Valid - ошибок нет, границу можно сохранять
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}
