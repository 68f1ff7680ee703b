// Package search wraps a bleve index behind a small context-aware engine.
package search

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

var ErrClosed = errors.New("search engine closed")

type Engine interface {
	IndexBatch(ctx context.Context, docs []Doc) error
	Delete(ctx context.Context, ids ...string) error
	Search(ctx context.Context, req Request) (Result, error)
	Close() error
}

type bleveEngine struct {
	cfg    Config
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// New 打开或创建索引；Path 已存在时沿用其中保存的 mapping
func New(cfg Config, m mapping.IndexMapping) (Engine, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	idx, err := open(cfg.Path, m)
	if err != nil {
		return nil, err
	}
	return &bleveEngine{cfg: cfg, index: idx}, nil
}

func open(path string, m mapping.IndexMapping) (bleve.Index, error) {
	if path == "" {
		return bleve.NewMemOnly(m)
	}
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return bleve.Open(path)
	case os.IsNotExist(err):
		return bleve.New(path, m)
	default:
		return nil, err
	}
}

func (e *bleveEngine) IndexBatch(ctx context.Context, docs []Doc) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrClosed
	}
	for start := 0; start < len(docs); start += e.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+e.cfg.BatchSize, len(docs))
		b := e.index.NewBatch()
		for _, d := range docs[start:end] {
			if err := b.Index(d.ID, fields(d)); err != nil {
				return err
			}
		}
		if err := e.index.Batch(b); err != nil {
			return err
		}
	}
	return nil
}

func (e *bleveEngine) Delete(ctx context.Context, ids ...string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil || len(ids) == 0 {
		return err
	}
	b := e.index.NewBatch()
	for _, id := range ids {
		b.Delete(id)
	}
	return e.index.Batch(b)
}

func (e *bleveEngine) Search(ctx context.Context, req Request) (Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return Result{}, ErrClosed
	}
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	sr := bleve.NewSearchRequest(e.query(req))
	sr.Size = req.Size
	if sr.Size <= 0 {
		sr.Size = 10
	}
	sr.Fields = req.Fields
	if len(sr.Fields) == 0 {
		sr.Fields = []string{"*"}
	}

	res, err := e.index.SearchInContext(ctx, sr)
	if err != nil {
		return Result{}, err
	}
	out := Result{Total: res.Total, Hits: make([]Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		out.Hits = append(out.Hits, Hit{ID: h.ID, Score: h.Score, Fields: h.Fields})
	}
	return out, nil
}

// query 关键字在各检索字段间取 OR，再与所有等值过滤取 AND
func (e *bleveEngine) query(req Request) query.Query {
	var must []query.Query
	if kw := strings.TrimSpace(req.Keyword); kw != "" {
		if len(e.cfg.SearchFields) == 0 {
			must = append(must, bleve.NewMatchQuery(kw))
		} else {
			or := make([]query.Query, len(e.cfg.SearchFields))
			for i, f := range e.cfg.SearchFields {
				mq := bleve.NewMatchQuery(kw)
				mq.SetField(f)
				or[i] = mq
			}
			must = append(must, bleve.NewDisjunctionQuery(or...))
		}
	}
	for field, values := range req.Terms {
		if len(values) == 0 {
			continue
		}
		or := make([]query.Query, len(values))
		for i, v := range values {
			tq := bleve.NewTermQuery(v)
			tq.SetField(field)
			or[i] = tq
		}
		must = append(must, bleve.NewDisjunctionQuery(or...))
	}
	if len(must) == 0 {
		return bleve.NewMatchAllQuery()
	}
	return bleve.NewConjunctionQuery(must...)
}

func (e *bleveEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.index.Close()
}

func fields(d Doc) map[string]any {
	out := make(map[string]any, len(d.Fields)+1)
	for k, v := range d.Fields {
		out[k] = v
	}
	if d.Type != "" {
		out["type"] = d.Type
	}
	return out
}
