package authority

import (
	"bionorm/normalization"
)

// Registry сопоставляет категории терминов их авторитетным источникам.
// Используется при сборке приложения, чтобы подключить источники к
// каскаду нормализации одной операцией
type Registry struct {
	lookups map[normalization.Category]normalization.AuthorityLookup
}

// NewRegistry создает пустой реестр источников
func NewRegistry() *Registry {
	return &Registry{
		lookups: make(map[normalization.Category]normalization.AuthorityLookup),
	}
}

// NewDefaultRegistry создает реестр со стандартной привязкой: организмы
// проверяются по NCBI Taxonomy, заболевания — по MeSH. Типы данных
// намеренно не привязаны: для них нет внешнего авторитетного источника,
// эта категория нормализуется только по словарю
func NewDefaultRegistry(client *NCBIClient) *Registry {
	r := NewRegistry()
	r.Register(normalization.CategoryOrganism, client)
	r.Register(normalization.CategoryDisease, client)
	return r
}

// Register привязывает источник к категории. Nil-источник игнорируется
func (r *Registry) Register(category normalization.Category, lookup normalization.AuthorityLookup) {
	if lookup == nil {
		return
	}
	r.lookups[category] = lookup
}

// Get возвращает источник для категории или nil, если категория не
// имеет авторитетного источника
func (r *Registry) Get(category normalization.Category) normalization.AuthorityLookup {
	return r.lookups[category]
}

// Lookups возвращает копию привязок для передачи в каскад
func (r *Registry) Lookups() map[normalization.Category]normalization.AuthorityLookup {
	out := make(map[normalization.Category]normalization.AuthorityLookup, len(r.lookups))
	for category, lookup := range r.lookups {
		out[category] = lookup
	}
	return out
}
