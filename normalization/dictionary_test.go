package normalization

import "testing"

func TestDictionary_AddLookup(t *testing.T) {
	d := NewDictionary()
	d.Add(CategoryOrganism, Term{
		CanonicalID:    "9606",
		CanonicalLabel: "Homo sapiens",
		Synonyms:       []string{"Human", "H. sapiens"},
	})

	// Поиск по нормализованной метке
	term, found := d.Lookup(CategoryOrganism, "homo sapiens")
	if !found {
		t.Fatal("Lookup by label returned not found")
	}
	if term.CanonicalID != "9606" {
		t.Errorf("CanonicalID = %q, want 9606", term.CanonicalID)
	}

	// Синонимы индексируются в нормализованной форме
	if _, found := d.Lookup(CategoryOrganism, "human"); !found {
		t.Error("Lookup by normalized synonym returned not found")
	}
	if _, found := d.Lookup(CategoryOrganism, "h. sapiens"); !found {
		t.Error("Lookup by dotted synonym returned not found")
	}

	// Исходная (ненормализованная) форма не является ключом
	if _, found := d.Lookup(CategoryOrganism, "Homo sapiens"); found {
		t.Error("Lookup must expect normalized input")
	}
}

// Категории изолированы друг от друга
func TestDictionary_CategoryIsolation(t *testing.T) {
	d := NewDictionary()
	d.Add(CategoryOrganism, Term{CanonicalID: "1", CanonicalLabel: "Alpha"})

	if _, found := d.Lookup(CategoryDisease, "alpha"); found {
		t.Error("term added to organism category must not be visible in disease category")
	}
}

// Повтор canonical_id заменяет запись
func TestDictionary_UpsertByCanonicalID(t *testing.T) {
	d := NewDictionary()
	d.Add(CategoryDisease, Term{CanonicalID: "D001", CanonicalLabel: "Old Label", Synonyms: []string{"old"}})
	d.Add(CategoryDisease, Term{CanonicalID: "D001", CanonicalLabel: "New Label", Synonyms: []string{"new"}})

	if got := len(d.Terms(CategoryDisease)); got != 1 {
		t.Fatalf("Terms count = %d, want 1 after upsert", got)
	}

	term, found := d.Lookup(CategoryDisease, "new")
	if !found {
		t.Fatal("Lookup by new synonym returned not found")
	}
	if term.CanonicalLabel != "New Label" {
		t.Errorf("CanonicalLabel = %q, want New Label", term.CanonicalLabel)
	}
}

// Невалидные записи игнорируются
func TestDictionary_RejectsInvalid(t *testing.T) {
	d := NewDictionary()
	d.Add(Category("protein"), Term{CanonicalID: "1", CanonicalLabel: "X"})
	d.Add(CategoryOrganism, Term{CanonicalID: "2"})

	if d.Size() != 0 {
		t.Errorf("Size() = %d, want 0", d.Size())
	}
}

// Terms возвращает копию: мутация результата не влияет на словарь
func TestDictionary_TermsReturnsCopy(t *testing.T) {
	d := NewDictionary()
	d.Add(CategoryOrganism, Term{CanonicalID: "9606", CanonicalLabel: "Homo sapiens"})

	terms := d.Terms(CategoryOrganism)
	terms[0].CanonicalLabel = "Mutated"

	term, _ := d.Lookup(CategoryOrganism, "homo sapiens")
	if term.CanonicalLabel != "Homo sapiens" {
		t.Errorf("dictionary was mutated through Terms() result: %q", term.CanonicalLabel)
	}
}

// Встроенный словарь покрывает все три категории
func TestDefaultDictionary(t *testing.T) {
	d := DefaultDictionary()

	for _, category := range AllCategories() {
		if len(d.Terms(category)) == 0 {
			t.Errorf("DefaultDictionary has no terms for category %q", category)
		}
	}

	tests := []struct {
		category Category
		text     string
		wantID   string
	}{
		{CategoryOrganism, "human", "9606"},
		{CategoryOrganism, "e. coli", "562"},
		{CategoryDisease, "breast cancer", "D001943"},
		{CategoryDataType, "transcriptomics", "RNAseq"},
	}

	for _, tt := range tests {
		term, found := d.Lookup(tt.category, tt.text)
		if !found {
			t.Errorf("Lookup(%q, %q) returned not found", tt.category, tt.text)
			continue
		}
		if term.CanonicalID != tt.wantID {
			t.Errorf("Lookup(%q, %q).CanonicalID = %q, want %q", tt.category, tt.text, term.CanonicalID, tt.wantID)
		}
	}
}
