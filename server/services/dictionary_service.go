package services

import (
	"fmt"
	"log/slog"
	"strings"

	"bionorm/database"
	"bionorm/normalization"
	apperrors "bionorm/server/errors"
)

// DictionaryService управляет словарем терминов: база терминов хранит
// постоянную копию, in-memory словарь обслуживает матчеры каскада.
// Запись идет в обе копии, чтобы изменения действовали без перезапуска
type DictionaryService struct {
	termDB *database.TermDB
	dict   *normalization.Dictionary
	logger *slog.Logger
}

// NewDictionaryService создает сервис словаря
func NewDictionaryService(termDB *database.TermDB, dict *normalization.Dictionary) *DictionaryService {
	return &DictionaryService{
		termDB: termDB,
		dict:   dict,
		logger: slog.Default().With("component", "dictionary_service"),
	}
}

// ListTerms возвращает термины категории из базы терминов
func (ds *DictionaryService) ListTerms(category normalization.Category) ([]database.StoredTerm, error) {
	if !category.Valid() {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unknown category %q", string(category)), nil)
	}

	terms, err := ds.termDB.ListTerms(category)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list terms", err)
	}
	return terms, nil
}

// UpsertTerm сохраняет термин в базе и сразу публикует его в словаре
// матчеров. Повтор canonical_id обновляет существующую запись
func (ds *DictionaryService) UpsertTerm(category normalization.Category, term normalization.Term) (*database.StoredTerm, error) {
	if !category.Valid() {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("unknown category %q", string(category)), nil)
	}
	if strings.TrimSpace(term.CanonicalLabel) == "" {
		return nil, apperrors.NewValidationError("canonical_label is required", nil)
	}
	if strings.TrimSpace(term.CanonicalID) == "" {
		term.CanonicalID = term.CanonicalLabel
	}

	stored, err := ds.termDB.UpsertTerm(category, term)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to upsert term", err)
	}

	if ds.dict != nil {
		ds.dict.Add(category, term)
	}

	ds.logger.Info("term upserted",
		"category", category,
		"canonical_id", term.CanonicalID,
		"synonyms", len(term.Synonyms))
	return stored, nil
}

// DeleteTerm удаляет термин из базы и перезагружает словарь матчеров:
// словарь не поддерживает точечное удаление, поэтому после удаления
// выполняется полная перезагрузка
func (ds *DictionaryService) DeleteTerm(category normalization.Category, canonicalID string) error {
	if !category.Valid() {
		return apperrors.NewValidationError(
			fmt.Sprintf("unknown category %q", string(category)), nil)
	}

	deleted, err := ds.termDB.DeleteTerm(category, canonicalID)
	if err != nil {
		return apperrors.NewInternalError("failed to delete term", err)
	}
	if !deleted {
		return apperrors.NewNotFoundError(
			fmt.Sprintf("term %q not found in category %q", canonicalID, string(category)), nil)
	}

	if err := ds.Reload(); err != nil {
		return err
	}

	ds.logger.Info("term deleted", "category", category, "canonical_id", canonicalID)
	return nil
}

// Reload перечитывает словарь матчеров из базы терминов
func (ds *DictionaryService) Reload() error {
	if ds.dict == nil {
		return nil
	}

	fresh, err := ds.termDB.LoadDictionary()
	if err != nil {
		return apperrors.NewInternalError("failed to reload dictionary", err)
	}

	ds.dict.ReplaceAll(fresh)
	ds.logger.Info("dictionary reloaded", "terms", fresh.Size())
	return nil
}

// Counts возвращает число терминов по категориям
func (ds *DictionaryService) Counts() (map[normalization.Category]int, error) {
	counts, err := ds.termDB.CountTerms()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to count terms", err)
	}
	return counts, nil
}
