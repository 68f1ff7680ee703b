package search

import (
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// SegmentType 字幕分段文档类型
const SegmentType = "segment"

// SegmentMapping 只索引 segment 类型；text 分词，其余字符串字段按原值精确匹配
func SegmentMapping(analyzer string) *mapping.IndexMappingImpl {
	if analyzer == "" {
		analyzer = standard.Name
	}
	idx := mapping.NewIndexMapping()
	idx.DefaultAnalyzer = analyzer
	idx.TypeField = "type"

	text := mapping.NewTextFieldMapping()
	text.Analyzer = analyzer
	text.IncludeInAll = true

	kw := mapping.NewTextFieldMapping()
	kw.Analyzer = keyword.Name
	kw.IncludeInAll = false

	num := mapping.NewNumericFieldMapping()
	num.IncludeInAll = false

	segment := mapping.NewDocumentMapping()
	segment.Dynamic = false
	segment.AddFieldMappingsAt("text", text)
	segment.AddFieldMappingsAt("resourceId", kw)
	segment.AddFieldMappingsAt("language", kw)
	segment.AddFieldMappingsAt("start", kw)
	segment.AddFieldMappingsAt("end", kw)
	segment.AddFieldMappingsAt("index", num)
	segment.AddFieldMappingsAt("startSeconds", num)
	idx.AddDocumentMapping(SegmentType, segment)

	def := mapping.NewDocumentMapping()
	def.Dynamic = false
	idx.DefaultMapping = def
	return idx
}
