// Package search indexes transcript segments so learners can jump to the moment a phrase is spoken.
package search

import (
	"context"
	"fmt"

	"VidyaSync/internal/models"
	fts "VidyaSync/pkg/search"
	"VidyaSync/pkg/timecode"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Hit 一条命中的字幕分段，Seconds 可直接用于视频跳转
type Hit struct {
	ResourceID string  `json:"resourceId"`
	Language   string  `json:"language"`
	Index      int     `json:"index"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	Seconds    int     `json:"seconds"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type Index struct {
	engine fts.Engine
	logger *zap.Logger
}

func NewIndex(engine fts.Engine, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{engine: engine, logger: logger}
}

// NewIndexAt path 为空时使用内存索引
func NewIndexAt(path string, logger *zap.Logger) (*Index, error) {
	engine, err := fts.New(fts.Config{
		Path:         path,
		SearchFields: []string{"text"},
	}, fts.SegmentMapping(""))
	if err != nil {
		return nil, err
	}
	return NewIndex(engine, logger), nil
}

func docID(resourceID, language string, i int) string {
	return fmt.Sprintf("%s/%s/%d", resourceID, language, i)
}

// IndexTranscript 替换该资源该语言的全部分段
func (ix *Index) IndexTranscript(ctx context.Context, t *models.Transcript) error {
	if err := ix.delete(ctx, map[string][]string{
		"resourceId": {t.ResourceID},
		"language":   {t.Language},
	}); err != nil {
		return err
	}

	docs := make([]fts.Doc, 0, len(t.Segments))
	for i, s := range t.Segments {
		docs = append(docs, fts.Doc{
			ID:   docID(t.ResourceID, t.Language, i),
			Type: fts.SegmentType,
			Fields: map[string]any{
				"resourceId":   t.ResourceID,
				"language":     t.Language,
				"index":        i,
				"start":        s.Start,
				"end":          s.End,
				"startSeconds": timecode.Parse(s.Start),
				"text":         s.Text,
			},
		})
	}
	if err := ix.engine.IndexBatch(ctx, docs); err != nil {
		return err
	}
	ix.logger.Debug("transcript indexed",
		zap.String("resource_id", t.ResourceID),
		zap.String("language", t.Language),
		zap.Int("segments", len(docs)))
	return nil
}

// DeleteResource 删除资源所有语言的分段
func (ix *Index) DeleteResource(ctx context.Context, resourceID string) error {
	return ix.delete(ctx, map[string][]string{"resourceId": {resourceID}})
}

func (ix *Index) delete(ctx context.Context, terms map[string][]string) error {
	for {
		res, err := ix.engine.Search(ctx, fts.Request{
			Terms:  terms,
			Size:   500,
			Fields: []string{"resourceId"},
		})
		if err != nil {
			return err
		}
		if len(res.Hits) == 0 {
			return nil
		}
		ids := make([]string, len(res.Hits))
		for i, h := range res.Hits {
			ids[i] = h.ID
		}
		if err := ix.engine.Delete(ctx, ids...); err != nil {
			return err
		}
	}
}

// Search 按关键字检索，language 为空时不过滤语言
func (ix *Index) Search(ctx context.Context, query, language string, limit int) ([]Hit, error) {
	req := fts.Request{Keyword: query, Size: limit}
	if language != "" {
		req.Terms = map[string][]string{"language": {language}}
	}
	res, err := ix.engine.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{
			ResourceID: cast.ToString(h.Fields["resourceId"]),
			Language:   cast.ToString(h.Fields["language"]),
			Index:      cast.ToInt(h.Fields["index"]),
			Start:      cast.ToString(h.Fields["start"]),
			End:        cast.ToString(h.Fields["end"]),
			Seconds:    cast.ToInt(h.Fields["startSeconds"]),
			Text:       cast.ToString(h.Fields["text"]),
			Score:      h.Score,
		})
	}
	return hits, nil
}

func (ix *Index) Close() error {
	return ix.engine.Close()
}
