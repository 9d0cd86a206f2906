package enum

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"callrouter/internal/logger"
	"callrouter/internal/trace"
)

type recordingSink struct {
	mu     sync.Mutex
	events []trace.Event
}

func (s *recordingSink) Emit(_ context.Context, ev trace.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) types() []trace.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]trace.EventType, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Type)
	}
	return out
}

const enumDocument = `{
  "number_blocks": [
    {"name": "US", "prefix": "+1", "regex": "!(^.*$)!sip:\\1@us.example.com!"},
    {"name": "Specific", "prefix": "+15108580271", "regex": "!(^.*$)!sip:\\1@specific.example.com!"},
    {"name": "UK", "prefix": "+44", "domain": "uk.example.com"},
    {"name": "France", "prefix": "+33", "regex": "!^\\+(.*)$!sip:\\1@{domain}!", "domain": "fr.example.com"},
    {"name": "Broken", "prefix": "+49", "regex": "!([!x!"},
    {"name": "Mobile only", "prefix": "+61", "regex": "!^\\+614!sip:mobile@au.example.com!"},
    {"name": "Missing prefix", "regex": "!.*!sip:x@example.com!"},
    {"name": "Wrong type", "prefix": 12},
    {"name": "No target", "prefix": "+7"}
  ]
}`

func writeEnumFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "enum.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestJSONServiceTranslate(t *testing.T) {
	svc := NewJSONService(writeEnumFile(t, enumDocument), nil, logger.NopLogger())
	ctx := context.Background()

	tests := []struct {
		name   string
		number string
		want   string
	}{
		{name: "longest prefix wins", number: "+15108580271", want: "sip:+15108580271@specific.example.com"},
		{name: "shorter prefix", number: "+1 (650) 555-0000", want: "sip:+16505550000@us.example.com"},
		{name: "domain only block", number: "+44 20 7123 4567", want: "sip:+442071234567@uk.example.com"},
		{name: "domain token", number: "+33123", want: "sip:33123@fr.example.com"},
		{name: "broken regex claims its prefix", number: "+4930123", want: ""},
		{name: "regex does not match", number: "+61212345678", want: ""},
		{name: "regex match splices", number: "+61412345678", want: "sip:mobile@au.example.com12345678"},
		{name: "no block", number: "+81312345678", want: ""},
		{name: "skipped block", number: "+74951234567", want: ""},
		{name: "empty input", number: "", want: ""},
		{name: "no digits", number: "()-", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.Translate(ctx, tt.number))
		})
	}
}

func TestJSONServiceLoadSkipsMalformedBlocks(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	svc := NewJSONService(writeEnumFile(t, enumDocument), nil, logger.NewWithCore(core))

	blocks := svc.Blocks()
	require.Len(t, blocks, 6)
	assert.Equal(t, "Specific", blocks[0].Name)
	for i := 1; i < len(blocks); i++ {
		assert.LessOrEqual(t, len(blocks[i].Prefix), len(blocks[i-1].Prefix))
	}

	assert.Equal(t, 3, logs.FilterMessage("Badly formed ENUM number block").Len())
	assert.Equal(t, 1, logs.FilterMessage("Badly formed regular expression in ENUM number block").Len())
}

func TestJSONServiceEqualPrefixKeepsFileOrder(t *testing.T) {
	svc := NewJSONService(writeEnumFile(t, `{"number_blocks": [
		{"name": "first", "prefix": "+44", "domain": "first.example.com"},
		{"name": "second", "prefix": "+44", "domain": "second.example.com"}
	]}`), nil, logger.NopLogger())

	assert.Equal(t, "sip:+441234@first.example.com", svc.Translate(context.Background(), "+441234"))
}

func TestJSONServiceDocumentFaults(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		message string
	}{
		{
			name:    "parse error",
			path:    func(t *testing.T) string { return writeEnumFile(t, `{"number_blocks": [`) },
			message: "Badly formed ENUM configuration data",
		},
		{
			name:    "missing container",
			path:    func(t *testing.T) string { return writeEnumFile(t, `{"blocks": []}`) },
			message: "Badly formed ENUM configuration data - missing number_blocks object",
		},
		{
			name:    "unreadable file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.json") },
			message: "Failed to read ENUM configuration data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			svc := NewJSONService(tt.path(t), nil, logger.NewWithCore(core))

			for _, number := range []string{"+15108580271", "+442071234567", "1234"} {
				assert.Empty(t, svc.Translate(context.Background(), number))
			}

			assert.Equal(t, 1, logs.FilterMessage(tt.message).Len(), "document fault is logged once at load")
			assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
			assert.Empty(t, svc.Blocks())
		})
	}
}

func TestJSONServiceReload(t *testing.T) {
	path := writeEnumFile(t, `{"number_blocks": [{"name": "a", "prefix": "+1", "domain": "a.example.com"}]}`)
	svc := NewJSONService(path, nil, logger.NopLogger())
	ctx := context.Background()

	assert.Equal(t, "sip:+1555@a.example.com", svc.Translate(ctx, "+1555"))

	require.NoError(t, os.WriteFile(path, []byte(`{"number_blocks": [{"name": "b", "prefix": "+1", "domain": "b.example.com"}]}`), 0o600))
	require.NoError(t, svc.Reload())
	assert.Equal(t, "sip:+1555@b.example.com", svc.Translate(ctx, "+1555"))

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))
	assert.ErrorIs(t, svc.Reload(), ErrInvalidDocument)
	assert.Equal(t, "sip:+1555@b.example.com", svc.Translate(ctx, "+1555"), "failed reload keeps the current table")
}

func TestJSONServiceTraceEvents(t *testing.T) {
	sink := &recordingSink{}
	svc := NewJSONService(writeEnumFile(t, enumDocument), sink, logger.NopLogger())

	svc.Translate(context.Background(), "+442071234567")
	assert.Equal(t, []trace.EventType{trace.EventEnumStart, trace.EventEnumMatch, trace.EventEnumComplete}, sink.types())
}

func TestJSONServiceConcurrentTranslateAndReload(t *testing.T) {
	path := writeEnumFile(t, enumDocument)
	svc := NewJSONService(path, nil, logger.NopLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.Equal(t, "sip:+442071234567@uk.example.com", svc.Translate(context.Background(), "+442071234567"))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Reload())
		}()
	}
	wg.Wait()
}

func TestJSONServiceCatchAllBlock(t *testing.T) {
	svc := NewJSONService(writeEnumFile(t, `{"number_blocks": [
		{"name": "default", "prefix": "", "regex": "!(^.*$)!sip:\\1@198.147.226.2!"},
		{"name": "Bay Area", "prefix": "+1510", "regex": "!(^.*$)!sip:\\1@ngv.example.com!"},
		{"name": "blank", "prefix": "   ", "domain": "blank.example.com"},
		{"name": "letters", "prefix": "abc", "domain": "letters.example.com"}
	]}`), nil, logger.NopLogger())
	ctx := context.Background()

	blocks := svc.Blocks()
	require.Len(t, blocks, 3)
	assert.Equal(t, "Bay Area", blocks[0].Name)
	assert.Equal(t, "default", blocks[1].Name)

	assert.Equal(t, "sip:+15108580271@ngv.example.com", svc.Translate(ctx, "+15108580271"))
	assert.Equal(t, "sip:+16108580277@198.147.226.2", svc.Translate(ctx, "+16108580277"))
	assert.Equal(t, "sip:2144324@198.147.226.2", svc.Translate(ctx, "214+4324"))
	assert.Empty(t, svc.Translate(ctx, "()-"), "empty input never reaches the catch-all")
}

func TestJSONServiceUnanchoredRegexReplacesEveryMatch(t *testing.T) {
	svc := NewJSONService(writeEnumFile(t, `{"number_blocks": [
		{"name": "zeros", "prefix": "+44", "regex": "!0!9!"}
	]}`), nil, logger.NopLogger())

	assert.Equal(t, "+449297", svc.Translate(context.Background(), "+440207"))
}
