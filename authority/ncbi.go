package authority

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"bionorm/normalization"
)

// Лимиты NCBI E-utilities: без API-ключа допускается до 3 запросов в
// секунду на всех пользователей, с ключом — до 10. Дефолт 0.34 оставляет
// запас под чужой трафик, с ключом поднимаемся до 3
const (
	defaultNCBIBaseURL   = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	defaultNCBITool      = "bionorm"
	defaultNCBIRateLimit = 0.34
	keyedNCBIRateLimit   = 3.0
	defaultNCBITimeout   = 10 * time.Second

	maxTermLength = 200
)

// NCBIConfig конфигурация клиента E-utilities
type NCBIConfig struct {
	BaseURL   string
	APIKey    string
	Email     string
	Tool      string
	RateLimit float64
	Timeout   time.Duration
}

// NCBIClient клиент NCBI E-utilities: таксономия организмов и тезаурус
// заболеваний MeSH. Один limiter на клиент, обе базы делят общую квоту
type NCBIClient struct {
	baseURL    string
	apiKey     string
	email      string
	tool       string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// esearchResponse ответ esearch.fcgi в формате JSON
type esearchResponse struct {
	ESearchResult struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// esummaryResponse ответ esummary.fcgi: записи лежат в result под
// динамическими ключами-идентификаторами
type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

// taxonomyRecord запись таксономии из esummary db=taxonomy
type taxonomyRecord struct {
	ScientificName string `json:"scientificname"`
	CommonName     string `json:"commonname"`
	Rank           string `json:"rank"`
	OtherNames     struct {
		Synonym []string `json:"synonym"`
		GenBank []string `json:"genbank"`
	} `json:"othernames"`
}

// meshRecord запись дескриптора из esummary db=mesh
type meshRecord struct {
	DescriptorName string `json:"descriptorname"`
	UI             string `json:"ui"`
	ConceptList    []struct {
		ConceptName string `json:"conceptname"`
		TermList    []struct {
			TermName string `json:"termname"`
		} `json:"termlist"`
	} `json:"conceptlist"`
}

// NewNCBIClient создает клиент E-utilities. Незаполненные поля
// конфигурации получают значения по умолчанию; при нулевом лимите
// частота выбирается по наличию API-ключа
func NewNCBIClient(cfg NCBIConfig) *NCBIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultNCBIBaseURL
	}
	if cfg.Tool == "" {
		cfg.Tool = defaultNCBITool
	}
	if cfg.RateLimit <= 0 {
		if cfg.APIKey != "" {
			cfg.RateLimit = keyedNCBIRateLimit
		} else {
			cfg.RateLimit = defaultNCBIRateLimit
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultNCBITimeout
	}

	return &NCBIClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		email:      cfg.Email,
		tool:       cfg.Tool,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		logger:     slog.Default().With("component", "ncbi_client"),
	}
}

// Lookup ищет термин в базе, соответствующей категории. Для категорий
// без авторитетного источника (типы данных) возвращает nil, nil
func (c *NCBIClient) Lookup(ctx context.Context, text string, category normalization.Category) (*normalization.AuthorityMatch, error) {
	switch category {
	case normalization.CategoryOrganism:
		return c.LookupOrganism(ctx, text)
	case normalization.CategoryDisease:
		return c.LookupDisease(ctx, text)
	default:
		return nil, nil
	}
}

// LookupOrganism ищет организм в NCBI Taxonomy. Возвращает nil, nil
// если таксономия не знает такого имени
func (c *NCBIClient) LookupOrganism(ctx context.Context, text string) (*normalization.AuthorityMatch, error) {
	term := sanitizeTerm(text)
	if term == "" {
		return nil, nil
	}

	id, err := c.search(ctx, "taxonomy", term)
	if err != nil {
		return nil, err
	}
	if id == "" {
		c.logger.Debug("taxonomy search found nothing", "term", term)
		return nil, nil
	}

	var record taxonomyRecord
	if err := c.summary(ctx, "taxonomy", id, &record); err != nil {
		return nil, err
	}
	if record.ScientificName == "" {
		return nil, nil
	}

	synonyms := collectSynonyms(record.ScientificName,
		append([]string{record.CommonName},
			append(record.OtherNames.Synonym, record.OtherNames.GenBank...)...))

	match := &normalization.AuthorityMatch{
		ID:       id,
		Label:    record.ScientificName,
		Quality:  classifyMatch(term, record.ScientificName, synonyms),
		Synonyms: synonyms,
	}

	c.logger.Debug("taxonomy match found",
		"term", term,
		"taxid", id,
		"label", match.Label,
		"quality", match.Quality)
	return match, nil
}

// LookupDisease ищет заболевание в тезаурусе MeSH. Возвращает nil, nil
// если дескриптор не найден
func (c *NCBIClient) LookupDisease(ctx context.Context, text string) (*normalization.AuthorityMatch, error) {
	term := sanitizeTerm(text)
	if term == "" {
		return nil, nil
	}

	id, err := c.search(ctx, "mesh", term)
	if err != nil {
		return nil, err
	}
	if id == "" {
		c.logger.Debug("mesh search found nothing", "term", term)
		return nil, nil
	}

	var record meshRecord
	if err := c.summary(ctx, "mesh", id, &record); err != nil {
		return nil, err
	}
	if record.DescriptorName == "" {
		return nil, nil
	}

	var raw []string
	for _, concept := range record.ConceptList {
		raw = append(raw, concept.ConceptName)
		for _, entry := range concept.TermList {
			raw = append(raw, entry.TermName)
		}
	}
	synonyms := collectSynonyms(record.DescriptorName, raw)

	meshID := record.UI
	if meshID == "" {
		meshID = id
	}

	match := &normalization.AuthorityMatch{
		ID:       meshID,
		Label:    record.DescriptorName,
		Quality:  classifyMatch(term, record.DescriptorName, synonyms),
		Synonyms: synonyms,
	}

	c.logger.Debug("mesh match found",
		"term", term,
		"mesh_id", meshID,
		"label", match.Label,
		"quality", match.Quality)
	return match, nil
}

// search выполняет esearch и возвращает первый найденный идентификатор
// или пустую строку, если база не знает термина
func (c *NCBIClient) search(ctx context.Context, db, term string) (string, error) {
	params := url.Values{}
	params.Set("db", db)
	params.Set("term", term)

	var response esearchResponse
	if err := c.getJSON(ctx, "esearch.fcgi", params, &response); err != nil {
		return "", fmt.Errorf("esearch db=%s: %w", db, err)
	}

	if len(response.ESearchResult.IDList) == 0 {
		return "", nil
	}
	return response.ESearchResult.IDList[0], nil
}

// summary выполняет esummary и разбирает запись с данным идентификатором
func (c *NCBIClient) summary(ctx context.Context, db, id string, out any) error {
	params := url.Values{}
	params.Set("db", db)
	params.Set("id", id)

	var response esummaryResponse
	if err := c.getJSON(ctx, "esummary.fcgi", params, &response); err != nil {
		return fmt.Errorf("esummary db=%s: %w", db, err)
	}

	raw, found := response.Result[id]
	if !found {
		return fmt.Errorf("esummary db=%s: no record for id %s", db, id)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("esummary db=%s: failed to decode record: %w", db, err)
	}
	return nil
}

// getJSON выполняет GET-запрос к E-utilities с лимитом частоты и
// обязательными параметрами идентификации (retmode, tool, email, api_key)
func (c *NCBIClient) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	params.Set("retmode", "json")
	params.Set("tool", c.tool)
	if c.email != "" {
		params.Set("email", c.email)
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "bionorm/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Формулировка со "status NNN" важна: по ней каскад отличает
	// временные сбои, которые стоит повторить
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// sanitizeTerm очищает поисковый термин и ограничивает его длину
func sanitizeTerm(text string) string {
	term := strings.TrimSpace(text)
	if len(term) > maxTermLength {
		term = term[:maxTermLength]
	}
	return term
}

// collectSynonyms собирает уникальные синонимы, исключая пустые строки
// и само каноническое имя
func collectSynonyms(label string, raw []string) []string {
	seen := make(map[string]bool)
	seen[strings.ToLower(strings.TrimSpace(label))] = true

	var synonyms []string
	for _, s := range raw {
		trimmed := strings.TrimSpace(s)
		key := strings.ToLower(trimmed)
		if trimmed == "" || seen[key] {
			continue
		}
		seen[key] = true
		synonyms = append(synonyms, trimmed)
	}
	return synonyms
}

// classifyMatch определяет качество совпадения запроса с найденной
// записью: равенство имени, равенство синониму, вхождение, иначе
// неоднозначное попадание
func classifyMatch(query, label string, synonyms []string) normalization.MatchQuality {
	q := strings.ToLower(strings.TrimSpace(query))
	l := strings.ToLower(strings.TrimSpace(label))

	if q == l {
		return normalization.QualityExact
	}
	for _, s := range synonyms {
		if strings.ToLower(strings.TrimSpace(s)) == q {
			return normalization.QualitySynonym
		}
	}
	if strings.Contains(l, q) || strings.Contains(q, l) {
		return normalization.QualityPartial
	}
	return normalization.QualityAmbiguous
}
