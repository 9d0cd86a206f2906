package enum

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"callrouter/internal/constants"
	"callrouter/internal/logger"
	"callrouter/internal/trace"
	"callrouter/pkg/metrics"
)

const domainToken = "{domain}"

type rawEnumDocument struct {
	NumberBlocks *[]json.RawMessage `json:"number_blocks"`
}

type rawNumberBlock struct {
	Name   string  `json:"name"`
	Prefix *string `json:"prefix"`
	Regex  *string `json:"regex"`
	Domain string  `json:"domain"`
}

// NumberBlock is one compiled static rule. A block whose rewrite rule failed
// to compile keeps its prefix and answers every lookup with no match.
type NumberBlock struct {
	Name    string
	Prefix  string
	Domain  string
	rule    *RewriteRule
	ruleErr error
}

// blockTable is immutable once built; lookups share it without locking.
type blockTable struct {
	blocks []NumberBlock
}

// JSONService translates numbers using static number blocks loaded from a
// JSON file. The longest matching prefix wins; equal prefixes keep file order.
type JSONService struct {
	path   string
	table  atomic.Pointer[blockTable]
	sink   trace.Sink
	logger logger.Logger
}

// NewJSONService loads path. A document-level fault is logged and leaves
// the service with no rules.
func NewJSONService(path string, sink trace.Sink, log logger.Logger) *JSONService {
	if sink == nil {
		sink = trace.NopSink{}
	}

	s := &JSONService{
		path:   path,
		sink:   sink,
		logger: log,
	}

	table, err := s.load()
	if err != nil {
		table = &blockTable{}
	}
	s.store(table)

	return s
}

// Reload rebuilds the block table from the file. On a document-level fault
// the current table stays in place and the error is returned.
func (s *JSONService) Reload() error {
	table, err := s.load()
	if err != nil {
		return err
	}
	s.store(table)
	s.logger.Infow("Reloaded ENUM number blocks",
		"file", s.path,
		"number_blocks", len(table.blocks),
	)
	return nil
}

func (s *JSONService) StartReloader(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Reload(); err != nil {
				s.logger.ErrorwCtx(ctx, "Failed to reload ENUM configuration, keeping current number blocks",
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *JSONService) Blocks() []NumberBlock {
	table := s.table.Load()
	out := make([]NumberBlock, len(table.blocks))
	copy(out, table.blocks)
	return out
}

func (s *JSONService) store(table *blockTable) {
	s.table.Store(table)
	metrics.SetEnumNumberBlocks(len(table.blocks))
}

func (s *JSONService) load() (*blockTable, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Errorw("Failed to read ENUM configuration data",
			"file", s.path,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	return s.parse(data)
}

func (s *JSONService) parse(data []byte) (*blockTable, error) {
	var doc rawEnumDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Errorw("Badly formed ENUM configuration data",
			"file", s.path,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	if doc.NumberBlocks == nil {
		s.logger.Errorw("Badly formed ENUM configuration data - missing number_blocks object",
			"file", s.path,
		)
		return nil, fmt.Errorf("%w: missing number_blocks", ErrInvalidDocument)
	}

	table := &blockTable{blocks: make([]NumberBlock, 0, len(*doc.NumberBlocks))}
	for i, raw := range *doc.NumberBlocks {
		block, err := s.compileBlock(raw)
		if err != nil {
			s.logger.Warnw("Badly formed ENUM number block",
				"file", s.path,
				"index", i,
				"error", err,
			)
			continue
		}
		table.blocks = append(table.blocks, block)
	}

	sort.SliceStable(table.blocks, func(i, j int) bool {
		return len(table.blocks[i].Prefix) > len(table.blocks[j].Prefix)
	})

	return table, nil
}

func (s *JSONService) compileBlock(raw json.RawMessage) (NumberBlock, error) {
	var rb rawNumberBlock
	if err := json.Unmarshal(raw, &rb); err != nil {
		return NumberBlock{}, fmt.Errorf("%w: %v", ErrMalformedRule, err)
	}

	if rb.Prefix == nil {
		return NumberBlock{}, fmt.Errorf("%w: missing prefix", ErrMalformedRule)
	}
	// An empty prefix is the catch-all block and sorts after every other.
	prefix := Normalize(*rb.Prefix)
	if prefix == "" && strings.TrimSpace(*rb.Prefix) != "" {
		return NumberBlock{}, fmt.Errorf("%w: prefix %q has no digits", ErrMalformedRule, *rb.Prefix)
	}

	block := NumberBlock{
		Name:   rb.Name,
		Prefix: prefix,
		Domain: strings.TrimSpace(rb.Domain),
	}

	if rb.Regex == nil || *rb.Regex == "" {
		if block.Domain == "" {
			return NumberBlock{}, fmt.Errorf("%w: block %q needs a regex or a domain", ErrMalformedRule, rb.Name)
		}
		return block, nil
	}

	rule, err := ParseRewrite(strings.ReplaceAll(*rb.Regex, domainToken, block.Domain))
	if err != nil {
		s.logger.Warnw("Badly formed regular expression in ENUM number block",
			"file", s.path,
			"block", rb.Name,
			"regex", *rb.Regex,
			"error", err,
		)
		block.ruleErr = err
		return block, nil
	}
	block.rule = &rule

	return block, nil
}

func (s *JSONService) Translate(ctx context.Context, raw string) string {
	start := time.Now()
	uri, result := s.translate(ctx, raw)
	metrics.ObserveEnumLookup(constants.EnumBackendJSON, result, time.Since(start))
	return uri
}

func (s *JSONService) translate(ctx context.Context, raw string) (string, string) {
	number := Normalize(raw)
	if number == "" {
		return "", "empty_input"
	}

	trace.Record(ctx, s.sink, trace.EventEnumStart, "number", number)

	block, ok := s.table.Load().lookup(number)
	if !ok {
		s.logger.DebugwCtx(ctx, "No ENUM number block matches", "number", number)
		trace.Record(ctx, s.sink, trace.EventEnumIncomplete, "number", number)
		return "", "no_match"
	}

	trace.Record(ctx, s.sink, trace.EventEnumMatch,
		"number", number,
		"block", block.Name,
		"prefix", block.Prefix,
	)

	if block.ruleErr != nil {
		s.logger.WarnwCtx(ctx, "ENUM number block has an unusable regular expression",
			"number", number,
			"block", block.Name,
			"error", block.ruleErr,
		)
		trace.Record(ctx, s.sink, trace.EventEnumIncomplete, "number", number, "block", block.Name)
		return "", "bad_rule"
	}

	var uri string
	if block.rule == nil {
		uri = "sip:" + number + "@" + block.Domain
	} else {
		out, matched := block.rule.Apply(number)
		if !matched {
			s.logger.WarnwCtx(ctx, "ENUM number block regular expression does not match",
				"number", number,
				"block", block.Name,
			)
			trace.Record(ctx, s.sink, trace.EventEnumIncomplete, "number", number, "block", block.Name)
			return "", "no_match"
		}
		uri = out
	}

	trace.Record(ctx, s.sink, trace.EventEnumComplete, "number", number, "uri", uri)
	return uri, "match"
}

func (t *blockTable) lookup(number string) (NumberBlock, bool) {
	for _, block := range t.blocks {
		if strings.HasPrefix(number, block.Prefix) {
			return block, true
		}
	}
	return NumberBlock{}, false
}
