package store

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/Aman-CERP/ftsync/internal/schema"
)

// TextAnalyzerName is the analyzer applied to every text field.
// It splits on Unicode word boundaries and lowercases, without stop words,
// so every word of a record stays searchable.
const TextAnalyzerName = "unit_text"

// buildMapping derives the bleve index mapping from a unit schema.
func buildMapping(s *schema.Schema) (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	err := im.AddCustomAnalyzer(TextAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add text analyzer: %w", err)
	}
	im.DefaultAnalyzer = TextAnalyzerName

	dm := bleve.NewDocumentStaticMapping()
	for _, f := range s.Fields {
		var fm *mapping.FieldMapping
		switch f.Kind {
		case schema.Text:
			fm = bleve.NewTextFieldMapping()
			fm.Analyzer = TextAnalyzerName
			fm.Store = f.Stored
			fm.IncludeInAll = false
		case schema.Numeric:
			fm = bleve.NewNumericFieldMapping()
			fm.Store = f.Stored
			fm.IncludeInAll = false
		case schema.UniqueKey:
			if f.NumericKey {
				fm = bleve.NewNumericFieldMapping()
			} else {
				fm = bleve.NewKeywordFieldMapping()
			}
			fm.Store = true
			fm.IncludeInAll = false
		default:
			return nil, fmt.Errorf("field %s has unsupported kind %s", f.Name, f.Kind)
		}
		dm.AddFieldMappingsAt(f.Name, fm)
	}

	im.DefaultMapping = dm
	im.StoreDynamic = false
	im.IndexDynamic = false

	return im, nil
}
