package importer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"bionorm/normalization"
)

// ParseHTMLFile парсит сохраненную HTML-страницу словаря терминов
func ParseHTMLFile(filePath string, defaultCategory normalization.Category) ([]TermRecord, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open HTML file: %w", err)
	}
	defer file.Close()

	return ParseHTML(file, defaultCategory)
}

// ParseHTML извлекает словарные записи из HTML-таблиц. Подходящей
// считается первая таблица, в заголовке которой распознается колонка
// метки; таблицы без заголовка разбираются по фиксированному порядку
// колонок (идентификатор, метка, синонимы)
func ParseHTML(r io.Reader, defaultCategory normalization.Category) ([]TermRecord, error) {
	node, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(node)

	var records []TermRecord

	// Стратегия 1: таблица с распознаваемыми заголовками
	doc.Find("table").EachWithBreak(func(i int, table *goquery.Selection) bool {
		rows := tableRows(table)
		if len(rows) < 2 {
			return true
		}

		colIndices := findTermColumnIndices(rows[0])
		if colIndices.label == -1 {
			return true
		}

		records = collectTableRecords(rows[1:], colIndices, defaultCategory)
		return len(records) == 0
	})

	// Стратегия 2: таблица без заголовка с позиционными колонками
	if len(records) == 0 {
		doc.Find("table").EachWithBreak(func(i int, table *goquery.Selection) bool {
			rows := tableRows(table)
			if len(rows) == 0 || len(rows[0]) < 2 {
				return true
			}

			colIndices := termColumnIndices{category: -1, id: 0, label: 1, synonyms: 2}
			records = collectTableRecords(rows, colIndices, defaultCategory)
			return len(records) == 0
		})
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no term tables found in HTML document")
	}

	return records, nil
}

// tableRows извлекает текст ячеек таблицы построчно
func tableRows(table *goquery.Selection) [][]string {
	var rows [][]string
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(j int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows
}

// collectTableRecords превращает строки таблицы в словарные записи
func collectTableRecords(rows [][]string, colIndices termColumnIndices, defaultCategory normalization.Category) []TermRecord {
	var records []TermRecord
	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}

		record := TermRecord{
			Category:       parseCategory(cellAt(row, colIndices.category), defaultCategory),
			CanonicalID:    cellAt(row, colIndices.id),
			CanonicalLabel: cellAt(row, colIndices.label),
			Synonyms:       splitSynonyms(cellAt(row, colIndices.synonyms)),
		}

		if record.CanonicalLabel == "" {
			continue
		}

		records = append(records, record)
	}
	return records
}
