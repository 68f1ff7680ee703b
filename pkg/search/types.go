package search

import "time"

// Config 索引配置
type Config struct {
	Path         string        // 为空时使用内存索引
	Analyzer     string        // 文本字段分析器，默认 standard
	SearchFields []string      // 关键字匹配的字段
	Timeout      time.Duration // 单次查询超时，0 表示不限制
	BatchSize    int
}

// Doc 待索引文档，Type 对应 mapping 中的文档类型
type Doc struct {
	ID     string
	Type   string
	Fields map[string]any
}

// Request 关键字与等值过滤为 AND 关系；同一字段的多个取值为 OR
type Request struct {
	Keyword string
	Terms   map[string][]string
	Size    int
	Fields  []string // 返回字段，为空时返回全部
}

type Hit struct {
	ID     string
	Score  float64
	Fields map[string]any
}

type Result struct {
	Total uint64
	Hits  []Hit
}
