package normalization

import (
	"sync"

	"bionorm/normalization/algorithms"
)

// Term каноническая запись словаря
type Term struct {
	CanonicalID    string   `json:"canonical_id"`
	CanonicalLabel string   `json:"canonical_label"`
	Synonyms       []string `json:"synonyms,omitempty"`
}

// Dictionary потокобезопасный словарь известных терминов по категориям.
// Служит источником для точного, нечеткого и семантического матчеров
type Dictionary struct {
	mu    sync.RWMutex
	terms map[Category][]Term
	// index: нормализованная форма (метка или синоним) -> позиция в terms
	index map[Category]map[string]int
}

// NewDictionary создает пустой словарь
func NewDictionary() *Dictionary {
	d := &Dictionary{
		terms: make(map[Category][]Term),
		index: make(map[Category]map[string]int),
	}
	for _, c := range AllCategories() {
		d.terms[c] = nil
		d.index[c] = make(map[string]int)
	}
	return d
}

// Add добавляет термин в словарь. Каноническая метка и все синонимы
// индексируются в нормализованной форме. Повтор canonical_id заменяет запись
func (d *Dictionary) Add(category Category, term Term) {
	if !category.Valid() || term.CanonicalLabel == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	idx := -1
	for i, existing := range d.terms[category] {
		if existing.CanonicalID == term.CanonicalID && term.CanonicalID != "" {
			idx = i
			break
		}
	}

	if idx >= 0 {
		d.terms[category][idx] = term
	} else {
		d.terms[category] = append(d.terms[category], term)
		idx = len(d.terms[category]) - 1
	}

	d.indexTermLocked(category, term, idx)
}

func (d *Dictionary) indexTermLocked(category Category, term Term, idx int) {
	if key := algorithms.Clean(term.CanonicalLabel); key != "" {
		d.index[category][key] = idx
	}
	for _, syn := range term.Synonyms {
		if key := algorithms.Clean(syn); key != "" {
			d.index[category][key] = idx
		}
	}
}

// ReplaceAll атомарно замещает содержимое словаря содержимым src.
// Используется при перезагрузке словаря из базы терминов: матчеры держат
// указатель на словарь, поэтому подмена выполняется на месте
func (d *Dictionary) ReplaceAll(src *Dictionary) {
	if src == nil {
		return
	}

	src.mu.RLock()
	terms := make(map[Category][]Term, len(src.terms))
	index := make(map[Category]map[string]int, len(src.index))
	for category, list := range src.terms {
		copied := make([]Term, len(list))
		copy(copied, list)
		terms[category] = copied
	}
	for category, idx := range src.index {
		copied := make(map[string]int, len(idx))
		for k, v := range idx {
			copied[k] = v
		}
		index[category] = copied
	}
	src.mu.RUnlock()

	d.mu.Lock()
	d.terms = terms
	d.index = index
	d.mu.Unlock()
}

// Lookup ищет термин по нормализованной форме (метка или синоним)
func (d *Dictionary) Lookup(category Category, normalized string) (Term, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	idx, found := d.index[category][normalized]
	if !found {
		return Term{}, false
	}
	return d.terms[category][idx], true
}

// Terms возвращает копию списка терминов категории
func (d *Dictionary) Terms(category Category) []Term {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Term, len(d.terms[category]))
	copy(out, d.terms[category])
	return out
}

// Size возвращает общее число терминов
func (d *Dictionary) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	total := 0
	for _, terms := range d.terms {
		total += len(terms)
	}
	return total
}

// SpecialCase обобщающий ввод, разворачиваемый в курируемый список терминов.
// Пример: "virus" не является именем организма, но пользователи вводят его
// регулярно; вместо отказа отдается расширение на распространенные вирусы
type SpecialCase struct {
	Category      Category
	CanonicalName string
	Confidence    float64
	ExpandedTerms []string
}

// CommonViruses распространенные вирусы для расширения обобщающего запроса
var CommonViruses = []string{
	"HIV",
	"SARS-CoV-2",
	"H1N1",
	"Ebola virus",
	"Zika virus",
	"Hepatitis C virus",
	"Human papillomavirus",
	"Influenza virus",
	"Herpes simplex virus",
	"Dengue virus",
}

// DefaultSpecialCases возвращает обобщающие вводы по умолчанию
func DefaultSpecialCases() map[string]SpecialCase {
	return map[string]SpecialCase{
		"virus": {
			Category:      CategoryOrganism,
			CanonicalName: "Virus",
			Confidence:    0.9,
			ExpandedTerms: CommonViruses,
		},
		"viruses": {
			Category:      CategoryOrganism,
			CanonicalName: "Virus",
			Confidence:    0.9,
			ExpandedTerms: CommonViruses,
		},
		"cancer": {
			Category:      CategoryDisease,
			CanonicalName: "Cancer",
			Confidence:    0.9,
			ExpandedTerms: []string{"neoplasm", "tumor", "carcinoma", "leukemia", "lymphoma"},
		},
		"infectious disease": {
			Category:      CategoryDisease,
			CanonicalName: "Infectious disease",
			Confidence:    0.9,
			ExpandedTerms: []string{"infection", "bacterial infection", "viral infection"},
		},
	}
}

// DefaultDataTypeVariants возвращает карту канонических типов данных к их
// вариантам написания; используется для поиска по вхождению ключевых слов
func DefaultDataTypeVariants() map[string][]string {
	return map[string][]string{
		"RNAseq": {"rna-seq", "rna seq", "rnaseq", "rna sequencing", "transcriptomics"},
		"scRNAseq": {"single cell rna seq", "scrna-seq", "single-cell rna-seq",
			"single cell transcriptomics", "sc-rna-seq", "single cell sequencing"},
		"Microarray":   {"array", "expression array", "gene expression array", "chip"},
		"WGS":          {"whole genome sequencing", "genome sequencing", "complete genome"},
		"WES":          {"whole exome sequencing", "exome sequencing", "exome"},
		"ATAC-seq":     {"atac seq", "atacseq", "chromatin accessibility"},
		"ChIP-seq":     {"chip seq", "chipseq", "chromatin immunoprecipitation"},
		"Proteomics":   {"mass spectrometry", "ms/ms", "protein expression", "proteome"},
		"Metabolomics": {"metabolite profiling", "metabolite analysis", "metabolome"},
		"Metagenomics": {"metagenomic sequencing", "microbiome sequencing", "microbiome analysis"},
	}
}

// DefaultDictionary возвращает словарь, заполненный курируемыми таблицами:
// модельные организмы с идентификаторами таксономии NCBI, распространенные
// заболевания с идентификаторами MeSH и канонические типы данных
func DefaultDictionary() *Dictionary {
	d := NewDictionary()

	organisms := []Term{
		{CanonicalID: "9606", CanonicalLabel: "Homo sapiens", Synonyms: []string{"human", "humans", "h. sapiens", "man"}},
		{CanonicalID: "10090", CanonicalLabel: "Mus musculus", Synonyms: []string{"mouse", "mice", "house mouse"}},
		{CanonicalID: "10116", CanonicalLabel: "Rattus norvegicus", Synonyms: []string{"rat", "rats", "norway rat"}},
		{CanonicalID: "7955", CanonicalLabel: "Danio rerio", Synonyms: []string{"zebrafish", "zebra fish"}},
		{CanonicalID: "7227", CanonicalLabel: "Drosophila melanogaster", Synonyms: []string{"fruit fly", "drosophila"}},
		{CanonicalID: "6239", CanonicalLabel: "Caenorhabditis elegans", Synonyms: []string{"c. elegans", "roundworm", "nematode"}},
		{CanonicalID: "4932", CanonicalLabel: "Saccharomyces cerevisiae", Synonyms: []string{"yeast", "baker's yeast", "brewer's yeast"}},
		{CanonicalID: "562", CanonicalLabel: "Escherichia coli", Synonyms: []string{"e. coli", "e coli"}},
		{CanonicalID: "3702", CanonicalLabel: "Arabidopsis thaliana", Synonyms: []string{"arabidopsis", "thale cress"}},
		{CanonicalID: "2697049", CanonicalLabel: "SARS-CoV-2", Synonyms: []string{"covid virus", "2019-ncov", "sars coronavirus 2"}},
		{CanonicalID: "9544", CanonicalLabel: "Macaca mulatta", Synonyms: []string{"rhesus monkey", "rhesus macaque"}},
		{CanonicalID: "9823", CanonicalLabel: "Sus scrofa", Synonyms: []string{"pig", "swine"}},
		{CanonicalID: "9031", CanonicalLabel: "Gallus gallus", Synonyms: []string{"chicken"}},
		{CanonicalID: "9913", CanonicalLabel: "Bos taurus", Synonyms: []string{"cattle", "cow"}},
	}
	for _, t := range organisms {
		d.Add(CategoryOrganism, t)
	}

	diseases := []Term{
		{CanonicalID: "D000544", CanonicalLabel: "Alzheimer's Disease", Synonyms: []string{"alzheimer", "alzheimers", "alzheimer disease", "alzheimer dementia"}},
		{CanonicalID: "D010300", CanonicalLabel: "Parkinson Disease", Synonyms: []string{"parkinson", "parkinsons", "parkinson's disease"}},
		{CanonicalID: "D003924", CanonicalLabel: "Diabetes Mellitus, Type 2", Synonyms: []string{"type 2 diabetes", "t2d", "diabetes type 2", "adult-onset diabetes"}},
		{CanonicalID: "D001943", CanonicalLabel: "Breast Neoplasms", Synonyms: []string{"breast cancer", "breast tumor", "mammary cancer"}},
		{CanonicalID: "D008175", CanonicalLabel: "Lung Neoplasms", Synonyms: []string{"lung cancer", "lung carcinoma"}},
		{CanonicalID: "D006973", CanonicalLabel: "Hypertension", Synonyms: []string{"high blood pressure"}},
		{CanonicalID: "D001249", CanonicalLabel: "Asthma", Synonyms: []string{"bronchial asthma"}},
		{CanonicalID: "D000086382", CanonicalLabel: "COVID-19", Synonyms: []string{"covid", "coronavirus disease 2019", "sars-cov-2 infection"}},
		{CanonicalID: "D007251", CanonicalLabel: "Influenza, Human", Synonyms: []string{"flu", "influenza", "grippe"}},
		{CanonicalID: "D015179", CanonicalLabel: "Colorectal Neoplasms", Synonyms: []string{"colorectal cancer", "colon cancer", "bowel cancer"}},
		{CanonicalID: "D007938", CanonicalLabel: "Leukemia", Synonyms: []string{"blood cancer"}},
		{CanonicalID: "D014376", CanonicalLabel: "Tuberculosis", Synonyms: []string{"tb", "phthisis"}},
	}
	for _, t := range diseases {
		d.Add(CategoryDisease, t)
	}

	for canonical, variants := range DefaultDataTypeVariants() {
		d.Add(CategoryDataType, Term{
			CanonicalID:    canonical,
			CanonicalLabel: canonical,
			Synonyms:       variants,
		})
	}

	return d
}
