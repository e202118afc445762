package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bionorm/authority"
	"bionorm/database"
	"bionorm/internal/config"
	"bionorm/internal/infrastructure/ai"
	"bionorm/normalization"
	"bionorm/server"
)

// taxonomyFixture запись фейковой таксономии для E2E тестов
type taxonomyFixture struct {
	id             string
	scientificName string
	commonName     string
	synonyms       []string
}

// fakeNCBI httptest-сервер, имитирующий NCBI E-utilities: esearch отвечает
// списком идентификаторов по термину, esummary — записью таксономии.
// Счетчики вызовов позволяют проверять порядок стадий каскада
type fakeNCBI struct {
	server       *httptest.Server
	searchCalls  atomic.Int64
	summaryCalls atomic.Int64
	failAll      atomic.Bool
	byTerm       map[string]taxonomyFixture
	byID         map[string]taxonomyFixture
}

func newFakeNCBI(fixtures ...taxonomyFixture) *fakeNCBI {
	f := &fakeNCBI{
		byTerm: make(map[string]taxonomyFixture),
		byID:   make(map[string]taxonomyFixture),
	}
	for _, fixture := range fixtures {
		f.byTerm[strings.ToLower(fixture.commonName)] = fixture
		f.byTerm[strings.ToLower(fixture.scientificName)] = fixture
		f.byID[fixture.id] = fixture
	}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/esearch.fcgi":
			f.searchCalls.Add(1)
			if f.failAll.Load() {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			term := strings.ToLower(r.URL.Query().Get("term"))
			idList := []string{}
			if fixture, found := f.byTerm[term]; found {
				idList = append(idList, fixture.id)
			}
			writeJSON(w, map[string]any{
				"esearchresult": map[string]any{
					"count":  "1",
					"idlist": idList,
				},
			})
		case "/esummary.fcgi":
			f.summaryCalls.Add(1)
			if f.failAll.Load() {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			id := r.URL.Query().Get("id")
			fixture, found := f.byID[id]
			if !found {
				writeJSON(w, map[string]any{"result": map[string]any{}})
				return
			}
			writeJSON(w, map[string]any{
				"result": map[string]any{
					id: map[string]any{
						"scientificname": fixture.scientificName,
						"commonname":     fixture.commonName,
						"rank":           "species",
						"othernames": map[string]any{
							"synonym": fixture.synonyms,
							"genbank": []string{},
						},
					},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))

	return f
}

// fakeOpenRouter httptest-сервер, имитирующий OpenRouter chat completions.
// Возвращает заготовленный ответ модели или ошибку 400 в режиме отказа
type fakeOpenRouter struct {
	server  *httptest.Server
	calls   atomic.Int64
	failAll atomic.Bool
	content string
}

func newFakeOpenRouter(content string) *fakeOpenRouter {
	f := &fakeOpenRouter{content: content}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		f.calls.Add(1)

		if f.failAll.Load() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{
					"message": "model is not available",
					"type":    "invalid_request_error",
				},
			})
			return
		}

		writeJSON(w, map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": f.content}},
			},
		})
	}))

	return f
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// llmCovidReply заготовленный ответ модели для терминов, которые не знает
// ни словарь, ни фейковая таксономия
const llmCovidReply = `{"canonical_name": "Severe acute respiratory syndrome coronavirus 2", "confidence": 90, "alternatives": ["SARS-CoV-2", "2019-nCoV"]}`

// e2eStack полный стек сервиса с фейковыми внешними источниками
type e2eStack struct {
	srv  *server.Server
	ncbi *fakeNCBI
	llm  *fakeOpenRouter
}

// newE2EStack собирает сервер так же, как это делает точка входа:
// словарь из базы терминов, каскад словарь-авторитет-нечеткий-LLM,
// кэш в памяти и журнал в сервисной БД. Авторитетная стадия и LLM
// ходят в фейковые серверы
func newE2EStack(t *testing.T) *e2eStack {
	t.Helper()
	tempDir := t.TempDir()

	termDB, err := database.NewTermDB(filepath.Join(tempDir, "terms.db"))
	if err != nil {
		t.Fatalf("Failed to create term DB: %v", err)
	}
	t.Cleanup(func() { termDB.Close() })

	if err := termDB.SeedDefaults(); err != nil {
		t.Fatalf("Failed to seed terms: %v", err)
	}
	dict, err := termDB.LoadDictionary()
	if err != nil {
		t.Fatalf("Failed to load dictionary: %v", err)
	}

	serviceDB, err := database.NewServiceDB(filepath.Join(tempDir, "service.db"))
	if err != nil {
		t.Fatalf("Failed to create service DB: %v", err)
	}
	t.Cleanup(func() { serviceDB.Close() })

	ncbi := newFakeNCBI(taxonomyFixture{
		id:             "8296",
		scientificName: "Ambystoma mexicanum",
		commonName:     "axolotl",
		synonyms:       []string{"Mexican salamander", "Mexican walking fish"},
	})
	t.Cleanup(ncbi.server.Close)

	llm := newFakeOpenRouter(llmCovidReply)
	t.Cleanup(llm.server.Close)

	ncbiClient := authority.NewNCBIClient(authority.NCBIConfig{
		BaseURL:   ncbi.server.URL,
		RateLimit: 1000,
		Timeout:   2 * time.Second,
	})
	authMatcher := normalization.NewAuthorityMatcher()
	authMatcher.SetTimeout(2 * time.Second)
	for category, lookup := range authority.NewDefaultRegistry(ncbiClient).Lookups() {
		authMatcher.Register(category, lookup)
	}

	llmClient := ai.NewOpenRouterClient(ai.OpenRouterConfig{
		BaseURL: llm.server.URL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	})
	llmMatcher := normalization.NewLLMMatcher(llmClient)
	llmMatcher.SetTimeout(5 * time.Second)

	cache := normalization.NewMemoryCache(1000)
	normalizer, err := normalization.NewNormalizer(
		normalization.DefaultNormalizerConfig(),
		cache,
		normalization.NewExactMatcher(dict),
		authMatcher,
		normalization.NewFuzzyMatcher(dict),
		llmMatcher,
	)
	if err != nil {
		t.Fatalf("Failed to create normalizer: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	cfg.TermDatabasePath = filepath.Join(tempDir, "terms.db")
	cfg.ServiceDatabasePath = filepath.Join(tempDir, "service.db")

	return &e2eStack{
		srv:  server.NewServer(cfg, normalizer, dict, cache, termDB, serviceDB),
		ncbi: ncbi,
		llm:  llm,
	}
}

// normalize выполняет POST /api/v1/normalize и разбирает ответ
func (s *e2eStack) normalize(t *testing.T, text, category string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	body, err := json.Marshal(map[string]string{"text": text, "category": category})
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/normalize", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.srv.ServeHTTP(w, req)

	var response map[string]any
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response: %v. Body: %s", err, w.Body.String())
		}
	}
	return w, response
}

// chosenCandidate достает выбранного кандидата из ответа
func chosenCandidate(t *testing.T, response map[string]any) map[string]any {
	t.Helper()
	chosen, ok := response["chosen_candidate"].(map[string]any)
	if !ok {
		t.Fatalf("Response has no chosen candidate: %v", response)
	}
	return chosen
}

// journalTotal возвращает размер журнала результатов через /api/v1/records
func journalTotal(t *testing.T, stack *e2eStack) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	w := httptest.NewRecorder()
	stack.srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for records, got %d", w.Code)
	}

	var page map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("Failed to parse records response: %v", err)
	}
	total, ok := page["total"].(float64)
	if !ok {
		t.Fatalf("Records response has no total: %v", page)
	}
	return int(total)
}

// TestE2E_DictionaryHit проверяет разрешение через словарь: термин из
// словаря не порождает ни одного обращения к внешним источникам
func TestE2E_DictionaryHit(t *testing.T) {
	stack := newE2EStack(t)

	w, response := stack.normalize(t, "human", "organism")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	if response["status"] != "resolved" {
		t.Errorf("status = %v, want resolved", response["status"])
	}

	chosen := chosenCandidate(t, response)
	if chosen["canonical_label"] != "Homo sapiens" {
		t.Errorf("canonical_label = %v, want Homo sapiens", chosen["canonical_label"])
	}
	if chosen["canonical_id"] != "9606" {
		t.Errorf("canonical_id = %v, want 9606", chosen["canonical_id"])
	}
	if chosen["source_strategy"] != "exact" {
		t.Errorf("source_strategy = %v, want exact", chosen["source_strategy"])
	}
	if chosen["confidence"].(float64) != 1.0 {
		t.Errorf("confidence = %v, want 1.0", chosen["confidence"])
	}

	// Точное совпадение обрывает каскад до внешних стадий
	if calls := stack.ncbi.searchCalls.Load(); calls != 0 {
		t.Errorf("NCBI search calls = %d, want 0", calls)
	}
	if calls := stack.llm.calls.Load(); calls != 0 {
		t.Errorf("LLM calls = %d, want 0", calls)
	}
}

// TestE2E_AuthorityFallback проверяет авторитетную стадию: термин,
// которого нет в словаре, разрешается через таксономию NCBI
func TestE2E_AuthorityFallback(t *testing.T) {
	stack := newE2EStack(t)

	w, response := stack.normalize(t, "axolotl", "organism")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	if response["status"] != "resolved" {
		t.Fatalf("status = %v, want resolved. Response: %v", response["status"], response)
	}

	chosen := chosenCandidate(t, response)
	if chosen["canonical_id"] != "8296" {
		t.Errorf("canonical_id = %v, want 8296", chosen["canonical_id"])
	}
	if chosen["canonical_label"] != "Ambystoma mexicanum" {
		t.Errorf("canonical_label = %v, want Ambystoma mexicanum", chosen["canonical_label"])
	}
	if chosen["source_strategy"] != "authority" {
		t.Errorf("source_strategy = %v, want authority", chosen["source_strategy"])
	}
	// Запрос совпал с народным названием, не с научным именем
	if conf := chosen["confidence"].(float64); conf != 0.95 {
		t.Errorf("confidence = %v, want 0.95 for synonym-quality match", conf)
	}

	if calls := stack.ncbi.searchCalls.Load(); calls != 1 {
		t.Errorf("NCBI search calls = %d, want 1", calls)
	}
	if calls := stack.ncbi.summaryCalls.Load(); calls != 1 {
		t.Errorf("NCBI summary calls = %d, want 1", calls)
	}
	if calls := stack.llm.calls.Load(); calls != 0 {
		t.Errorf("LLM calls = %d, want 0", calls)
	}
}

// TestE2E_CascadeOrder проверяет порядок стадий: авторитетный источник
// опрашивается до нечеткого поиска, а разрешение на нечеткой стадии
// не доходит до LLM
func TestE2E_CascadeOrder(t *testing.T) {
	stack := newE2EStack(t)

	// Термина нет ни в словаре (точно), ни в фейковой таксономии,
	// но нечеткий поиск находит его среди синонимов словаря
	w, response := stack.normalize(t, "sars coronavirus 22", "organism")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	if response["status"] != "resolved" {
		t.Fatalf("status = %v, want resolved. Response: %v", response["status"], response)
	}

	chosen := chosenCandidate(t, response)
	if chosen["canonical_label"] != "SARS-CoV-2" {
		t.Errorf("canonical_label = %v, want SARS-CoV-2", chosen["canonical_label"])
	}
	if chosen["source_strategy"] != "fuzzy" {
		t.Errorf("source_strategy = %v, want fuzzy", chosen["source_strategy"])
	}

	// Авторитетная стадия отработала до нечеткой и ничего не нашла
	if calls := stack.ncbi.searchCalls.Load(); calls != 1 {
		t.Errorf("NCBI search calls = %d, want 1", calls)
	}
	// После разрешения на нечеткой стадии LLM не вызывается
	if calls := stack.llm.calls.Load(); calls != 0 {
		t.Errorf("LLM calls = %d, want 0", calls)
	}
}

// TestE2E_LLMLastResort проверяет стадию последней надежды: термин,
// неизвестный словарю и таксономии, разрешается через языковую модель
func TestE2E_LLMLastResort(t *testing.T) {
	stack := newE2EStack(t)

	w, response := stack.normalize(t, "uncharacterized isolate qx99", "organism")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	if response["status"] != "resolved" {
		t.Fatalf("status = %v, want resolved. Response: %v", response["status"], response)
	}

	chosen := chosenCandidate(t, response)
	if chosen["canonical_label"] != "Severe acute respiratory syndrome coronavirus 2" {
		t.Errorf("canonical_label = %v, want LLM canonical name", chosen["canonical_label"])
	}
	if chosen["source_strategy"] != "llm" {
		t.Errorf("source_strategy = %v, want llm", chosen["source_strategy"])
	}
	if conf := chosen["confidence"].(float64); conf != 0.9 {
		t.Errorf("confidence = %v, want 0.9", conf)
	}

	if calls := stack.ncbi.searchCalls.Load(); calls != 1 {
		t.Errorf("NCBI search calls = %d, want 1", calls)
	}
	if calls := stack.llm.calls.Load(); calls != 1 {
		t.Errorf("LLM calls = %d, want 1", calls)
	}
}

// TestE2E_CacheAcrossRequests проверяет кэширование между HTTP-запросами:
// повторный запрос отвечает из кэша без обращений к внешним источникам,
// оба результата попадают в журнал
func TestE2E_CacheAcrossRequests(t *testing.T) {
	stack := newE2EStack(t)

	w1, first := stack.normalize(t, "axolotl", "organism")
	if w1.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for first request, got %d", w1.Code)
	}
	if first["from_cache"] != nil && first["from_cache"].(bool) {
		t.Error("first request must not be served from cache")
	}

	callsAfterFirst := stack.ncbi.searchCalls.Load()

	w2, second := stack.normalize(t, "axolotl", "organism")
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for second request, got %d", w2.Code)
	}
	if cached, _ := second["from_cache"].(bool); !cached {
		t.Error("second request must be served from cache")
	}
	if second["status"] != "resolved" {
		t.Errorf("cached status = %v, want resolved", second["status"])
	}
	if chosenCandidate(t, second)["canonical_id"] != "8296" {
		t.Error("cached result must carry the same canonical id")
	}

	if calls := stack.ncbi.searchCalls.Load(); calls != callsAfterFirst {
		t.Errorf("NCBI search calls grew from %d to %d on cached request", callsAfterFirst, calls)
	}

	// Оба запроса зафиксированы в журнале, включая ответ из кэша
	if total := journalTotal(t, stack); total != 2 {
		t.Errorf("journal total = %d, want 2", total)
	}

	// Статистика оркестратора видит попадание в кэш
	statsReq := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	statsW := httptest.NewRecorder()
	stack.srv.ServeHTTP(statsW, statsReq)
	if statsW.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for stats, got %d", statsW.Code)
	}

	var stats map[string]any
	if err := json.Unmarshal(statsW.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to parse stats response: %v", err)
	}
	normalizerStats := stats["normalizer"].(map[string]any)
	if hits := normalizerStats["cache_hits"].(float64); hits < 1 {
		t.Errorf("cache_hits = %v, want at least 1", hits)
	}
}

// TestE2E_BatchMixedStrategies проверяет пакетную нормализацию: элементы
// пакета разрешаются разными стадиями, порядок результатов сохраняется
func TestE2E_BatchMixedStrategies(t *testing.T) {
	stack := newE2EStack(t)

	body, err := json.Marshal(map[string]any{
		"items": []map[string]string{
			{"text": "mouse", "category": "organism"},
			{"text": "axolotl", "category": "organism"},
			{"text": "alzheimers", "category": "disease"},
		},
	})
	if err != nil {
		t.Fatalf("Failed to marshal batch: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/normalize/batch", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	stack.srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	var response struct {
		Total int `json:"total"`
		Items []struct {
			Index  int                   `json:"index"`
			Result *normalization.Result `json:"result"`
			Error  string                `json:"error"`
		} `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse batch response: %v", err)
	}

	if response.Total != 3 {
		t.Fatalf("total = %d, want 3", response.Total)
	}

	wantByIndex := map[int]struct {
		id       string
		strategy normalization.Strategy
	}{
		0: {id: "10090", strategy: normalization.StrategyExact},
		1: {id: "8296", strategy: normalization.StrategyAuthority},
		2: {id: "D000544", strategy: normalization.StrategyExact},
	}

	for _, item := range response.Items {
		want, known := wantByIndex[item.Index]
		if !known {
			t.Errorf("unexpected item index %d", item.Index)
			continue
		}
		if item.Error != "" {
			t.Errorf("item %d failed: %s", item.Index, item.Error)
			continue
		}
		if item.Result == nil || item.Result.Chosen == nil {
			t.Errorf("item %d has no chosen candidate", item.Index)
			continue
		}
		if item.Result.Chosen.CanonicalID != want.id {
			t.Errorf("item %d canonical id = %s, want %s", item.Index, item.Result.Chosen.CanonicalID, want.id)
		}
		if item.Result.Chosen.Source != want.strategy {
			t.Errorf("item %d strategy = %s, want %s", item.Index, item.Result.Chosen.Source, want.strategy)
		}
	}
}
