package authority

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/time/rate"

	"bionorm/normalization"
)

const taxonomySearchBody = `{
	"esearchresult": {"count": "1", "idlist": ["9606"]}
}`

const taxonomySummaryBody = `{
	"result": {
		"uids": ["9606"],
		"9606": {
			"scientificname": "Homo sapiens",
			"commonname": "human",
			"rank": "species",
			"lineage": "cellular organisms; Eukaryota; Metazoa",
			"othernames": {
				"synonym": ["H. sapiens"],
				"genbank": ["man"]
			}
		}
	}
}`

const meshSearchBody = `{
	"esearchresult": {"count": "1", "idlist": ["68000544"]}
}`

const meshSummaryBody = `{
	"result": {
		"uids": ["68000544"],
		"68000544": {
			"descriptorname": "Alzheimer's Disease",
			"ui": "D000544",
			"scopenote": "A degenerative disease of the brain.",
			"treenumberlist": ["C10.228.140.380.100"],
			"conceptlist": [
				{
					"conceptname": "Alzheimer Disease",
					"preferredconceptyn": "Y",
					"termlist": [
						{"termname": "Alzheimer Dementia", "termui": "T000973"},
						{"termname": "Presenile Dementia", "termui": "T000975"}
					]
				}
			]
		}
	}
}`

const emptySearchBody = `{
	"esearchresult": {"count": "0", "idlist": []}
}`

// newTestNCBIClient создает клиент, направленный на тестовый сервер,
// с высоким лимитом частоты, чтобы тесты не ждали limiter
func newTestNCBIClient(t *testing.T, handler http.HandlerFunc) (*NCBIClient, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewNCBIClient(NCBIConfig{
		BaseURL:   server.URL,
		Email:     "dev@bionorm.test",
		RateLimit: 1000,
	})
	return client, server
}

// Тест поиска организма: esearch находит TaxId, esummary возвращает
// научное имя и синонимы
func TestNCBIClient_LookupOrganism(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestNCBIClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		query := r.URL.Query()

		if query.Get("db") != "taxonomy" {
			t.Errorf("expected db=taxonomy, got %q", query.Get("db"))
		}
		if query.Get("retmode") != "json" {
			t.Errorf("expected retmode=json, got %q", query.Get("retmode"))
		}
		if query.Get("tool") != "bionorm" {
			t.Errorf("expected tool=bionorm, got %q", query.Get("tool"))
		}
		if query.Get("email") != "dev@bionorm.test" {
			t.Errorf("expected email param, got %q", query.Get("email"))
		}
		if ua := r.Header.Get("User-Agent"); ua != "bionorm/1.0" {
			t.Errorf("expected User-Agent bionorm/1.0, got %q", ua)
		}

		switch r.URL.Path {
		case "/esearch.fcgi":
			if query.Get("term") != "human" {
				t.Errorf("expected term=human, got %q", query.Get("term"))
			}
			w.Write([]byte(taxonomySearchBody))
		case "/esummary.fcgi":
			if query.Get("id") != "9606" {
				t.Errorf("expected id=9606, got %q", query.Get("id"))
			}
			w.Write([]byte(taxonomySummaryBody))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	})

	match, err := client.LookupOrganism(context.Background(), "human")
	if err != nil {
		t.Fatalf("LookupOrganism failed: %v", err)
	}
	if match == nil {
		t.Fatal("expected match, got nil")
	}

	if match.ID != "9606" {
		t.Errorf("expected ID 9606, got %q", match.ID)
	}
	if match.Label != "Homo sapiens" {
		t.Errorf("expected label Homo sapiens, got %q", match.Label)
	}
	if match.Quality != normalization.QualitySynonym {
		t.Errorf("expected quality synonym, got %q", match.Quality)
	}

	wantSynonyms := []string{"human", "H. sapiens", "man"}
	for _, want := range wantSynonyms {
		found := false
		for _, s := range match.Synonyms {
			if s == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected synonym %q in %v", want, match.Synonyms)
		}
	}

	if calls.Load() != 2 {
		t.Errorf("expected 2 HTTP calls (esearch + esummary), got %d", calls.Load())
	}
}

// Тест точного совпадения: запрос равен научному имени записи
func TestNCBIClient_LookupOrganismExact(t *testing.T) {
	client, _ := newTestNCBIClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/esearch.fcgi":
			w.Write([]byte(taxonomySearchBody))
		case "/esummary.fcgi":
			w.Write([]byte(taxonomySummaryBody))
		}
	})

	match, err := client.LookupOrganism(context.Background(), "Homo sapiens")
	if err != nil {
		t.Fatalf("LookupOrganism failed: %v", err)
	}
	if match == nil {
		t.Fatal("expected match, got nil")
	}
	if match.Quality != normalization.QualityExact {
		t.Errorf("expected quality exact, got %q", match.Quality)
	}
}

// Тест отсутствующего организма: пустой idlist означает "не найдено"
// без обращения к esummary
func TestNCBIClient_LookupOrganismNotFound(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestNCBIClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(emptySearchBody))
	})

	match, err := client.LookupOrganism(context.Background(), "definitely not an organism")
	if err != nil {
		t.Fatalf("expected no error for missing term, got: %v", err)
	}
	if match != nil {
		t.Errorf("expected nil match, got %+v", match)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 HTTP call (esearch only), got %d", calls.Load())
	}
}

// Тест поиска заболевания в MeSH: дескриптор, UI и синонимы из
// списка концептов
func TestNCBIClient_LookupDisease(t *testing.T) {
	client, _ := newTestNCBIClient(t, func(w http.ResponseWriter, r *http.Request) {
		if db := r.URL.Query().Get("db"); db != "mesh" {
			t.Errorf("expected db=mesh, got %q", db)
		}
		switch r.URL.Path {
		case "/esearch.fcgi":
			w.Write([]byte(meshSearchBody))
		case "/esummary.fcgi":
			w.Write([]byte(meshSummaryBody))
		}
	})

	match, err := client.LookupDisease(context.Background(), "alzheimer")
	if err != nil {
		t.Fatalf("LookupDisease failed: %v", err)
	}
	if match == nil {
		t.Fatal("expected match, got nil")
	}

	if match.ID != "D000544" {
		t.Errorf("expected MeSH UI D000544, got %q", match.ID)
	}
	if match.Label != "Alzheimer's Disease" {
		t.Errorf("expected label Alzheimer's Disease, got %q", match.Label)
	}
	if match.Quality != normalization.QualityPartial {
		t.Errorf("expected quality partial, got %q", match.Quality)
	}

	wantSynonyms := []string{"Alzheimer Disease", "Alzheimer Dementia", "Presenile Dementia"}
	for _, want := range wantSynonyms {
		found := false
		for _, s := range match.Synonyms {
			if s == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected synonym %q in %v", want, match.Synonyms)
		}
	}
}

// Тест категории без авторитетного источника: типы данных не
// проверяются по внешним базам, HTTP-запросы не выполняются
func TestNCBIClient_LookupDataType(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestNCBIClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	match, err := client.Lookup(context.Background(), "RNA-seq", normalization.CategoryDataType)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if match != nil {
		t.Errorf("expected nil match for data_type, got %+v", match)
	}
	if calls.Load() != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", calls.Load())
	}
}

// Тест диспетчеризации Lookup по категориям
func TestNCBIClient_LookupDispatch(t *testing.T) {
	client, _ := newTestNCBIClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("db") {
		case "taxonomy":
			if r.URL.Path == "/esearch.fcgi" {
				w.Write([]byte(taxonomySearchBody))
			} else {
				w.Write([]byte(taxonomySummaryBody))
			}
		case "mesh":
			if r.URL.Path == "/esearch.fcgi" {
				w.Write([]byte(meshSearchBody))
			} else {
				w.Write([]byte(meshSummaryBody))
			}
		default:
			t.Errorf("unexpected db: %q", r.URL.Query().Get("db"))
		}
	})

	organism, err := client.Lookup(context.Background(), "human", normalization.CategoryOrganism)
	if err != nil {
		t.Fatalf("organism lookup failed: %v", err)
	}
	if organism == nil || organism.Label != "Homo sapiens" {
		t.Errorf("expected Homo sapiens for organism category, got %+v", organism)
	}

	disease, err := client.Lookup(context.Background(), "alzheimer", normalization.CategoryDisease)
	if err != nil {
		t.Fatalf("disease lookup failed: %v", err)
	}
	if disease == nil || disease.Label != "Alzheimer's Disease" {
		t.Errorf("expected Alzheimer's Disease for disease category, got %+v", disease)
	}
}

// Тест ошибки сервера: ответ 500 превращается в повторяемую ошибку
func TestNCBIClient_ServerError(t *testing.T) {
	client, _ := newTestNCBIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.LookupOrganism(context.Background(), "human")
	if err == nil {
		t.Fatal("expected error for server failure")
	}
	if !normalization.IsRetryableError(err) {
		t.Errorf("expected retryable error, got: %v", err)
	}
}

// Тест пустого термина: пробельная строка не отправляется в NCBI
func TestNCBIClient_EmptyTerm(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestNCBIClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	match, err := client.LookupOrganism(context.Background(), "   ")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if match != nil {
		t.Errorf("expected nil match, got %+v", match)
	}
	if calls.Load() != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", calls.Load())
	}
}

// Тест значений по умолчанию: лимит частоты зависит от наличия API-ключа
func TestNewNCBIClient_Defaults(t *testing.T) {
	unkeyed := NewNCBIClient(NCBIConfig{})
	if unkeyed.baseURL != defaultNCBIBaseURL {
		t.Errorf("expected default base URL, got %q", unkeyed.baseURL)
	}
	if unkeyed.tool != defaultNCBITool {
		t.Errorf("expected default tool, got %q", unkeyed.tool)
	}
	if got := unkeyed.limiter.Limit(); got != rate.Limit(defaultNCBIRateLimit) {
		t.Errorf("expected rate limit %v without key, got %v", defaultNCBIRateLimit, got)
	}

	keyed := NewNCBIClient(NCBIConfig{APIKey: "secret"})
	if got := keyed.limiter.Limit(); got != rate.Limit(keyedNCBIRateLimit) {
		t.Errorf("expected rate limit %v with key, got %v", keyedNCBIRateLimit, got)
	}
}

// Тест классификации качества совпадения
func TestClassifyMatch(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		label    string
		synonyms []string
		want     normalization.MatchQuality
	}{
		{
			name:  "ExactCaseInsensitive",
			query: "homo sapiens",
			label: "Homo sapiens",
			want:  normalization.QualityExact,
		},
		{
			name:     "SynonymMatch",
			query:    "human",
			label:    "Homo sapiens",
			synonyms: []string{"human", "man"},
			want:     normalization.QualitySynonym,
		},
		{
			name:  "QueryInsideLabel",
			query: "alzheimer",
			label: "Alzheimer's Disease",
			want:  normalization.QualityPartial,
		},
		{
			name:  "LabelInsideQuery",
			query: "the mus musculus mouse",
			label: "Mus musculus",
			want:  normalization.QualityPartial,
		},
		{
			name:  "NoOverlap",
			query: "brain cancer",
			label: "Glioblastoma",
			want:  normalization.QualityAmbiguous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyMatch(tt.query, tt.label, tt.synonyms)
			if got != tt.want {
				t.Errorf("classifyMatch(%q, %q) = %q, want %q", tt.query, tt.label, got, tt.want)
			}
		})
	}
}

// Тест реестра: стандартная привязка покрывает организмы и заболевания,
// но не типы данных
func TestRegistry(t *testing.T) {
	client := NewNCBIClient(NCBIConfig{})
	registry := NewDefaultRegistry(client)

	if registry.Get(normalization.CategoryOrganism) == nil {
		t.Error("expected organism lookup registered")
	}
	if registry.Get(normalization.CategoryDisease) == nil {
		t.Error("expected disease lookup registered")
	}
	if registry.Get(normalization.CategoryDataType) != nil {
		t.Error("expected no lookup for data_type")
	}

	lookups := registry.Lookups()
	if len(lookups) != 2 {
		t.Errorf("expected 2 registered lookups, got %d", len(lookups))
	}

	registry.Register(normalization.CategoryDataType, nil)
	if registry.Get(normalization.CategoryDataType) != nil {
		t.Error("nil lookup should not be registered")
	}
}
