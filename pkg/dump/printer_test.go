package dump

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"targetapi/pkg/models"
	"targetapi/pkg/utils/logger"
)

func createTestLogger(t *testing.T) *logger.Logger {
	l, err := logger.NewLogger(&models.LogConfig{Level: models.LOG_LEVEL_DEBUG})
	if err != nil {
		t.Fatalf("Failed to create test logger: %v", err)
	}
	return l
}

type recordingPublisher struct {
	mu     sync.Mutex
	blocks []string
	err    error
}

func (r *recordingPublisher) Publish(ctx context.Context, block string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, block)
	return r.err
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("console closed")
}

func TestNewPrinter_InvalidRedactPattern(t *testing.T) {
	_, err := NewPrinter(&bytes.Buffer{}, &models.DumpConfig{RedactHeaders: []string{"("}}, nil, createTestLogger(t))
	if err == nil {
		t.Error("Expected error for invalid redact pattern")
	}
}

func TestPrinter_Print(t *testing.T) {
	var out bytes.Buffer
	pub := &recordingPublisher{}
	p, err := NewPrinter(&out, &models.DumpConfig{RedactHeaders: []string{"^cookie$"}}, pub, createTestLogger(t))
	if err != nil {
		t.Fatalf("Failed to create printer: %v", err)
	}

	d := &RequestDump{
		Method:  "GET",
		Path:    "/",
		Headers: []Header{{Name: "cookie", Value: "session=1"}},
	}
	p.Print(context.Background(), d)

	if !strings.Contains(out.String(), "  cookie: [redacted]\n") {
		t.Errorf("Expected redacted cookie, got:\n%s", out.String())
	}
	if len(pub.blocks) != 1 {
		t.Fatalf("Expected 1 published block, got %d", len(pub.blocks))
	}
	if pub.blocks[0] != out.String() {
		t.Error("Published block should equal the printed block")
	}
}

func TestPrinter_DecodeCharset(t *testing.T) {
	d := &RequestDump{
		Method:      "POST",
		Path:        "/",
		Body:        []byte{'c', 'a', 'f', 0xe9},
		ContentType: "text/plain; charset=iso-8859-1",
	}

	var plain bytes.Buffer
	p, err := NewPrinter(&plain, &models.DumpConfig{}, nil, createTestLogger(t))
	if err != nil {
		t.Fatalf("Failed to create printer: %v", err)
	}
	p.Print(context.Background(), d)
	if !strings.Contains(plain.String(), "\ncaf\uFFFD\n") {
		t.Errorf("Expected UTF-8 replacement by default, got:\n%s", plain.String())
	}

	var decoded bytes.Buffer
	p, err = NewPrinter(&decoded, &models.DumpConfig{DecodeCharset: true}, nil, createTestLogger(t))
	if err != nil {
		t.Fatalf("Failed to create printer: %v", err)
	}
	p.Print(context.Background(), d)
	if !strings.Contains(decoded.String(), "\ncafé\n") {
		t.Errorf("Expected latin-1 body decoded with decodeCharset, got:\n%s", decoded.String())
	}
}

func TestPrinter_FailuresAreSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	p, err := NewPrinter(failingWriter{}, nil, pub, createTestLogger(t))
	if err != nil {
		t.Fatalf("Failed to create printer: %v", err)
	}

	p.Print(context.Background(), &RequestDump{Method: "POST", Path: "/"})

	if len(pub.blocks) != 1 {
		t.Error("Publisher should still be called after a console write failure")
	}
}

func TestPrinter_ConcurrentBlocksDoNotInterleave(t *testing.T) {
	var out bytes.Buffer
	p, err := NewPrinter(&out, nil, nil, createTestLogger(t))
	if err != nil {
		t.Fatalf("Failed to create printer: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Print(context.Background(), &RequestDump{
				Method:  "POST",
				Path:    "/plans",
				Headers: []Header{{Name: "x-n", Value: "v"}},
				Body:    []byte("payload"),
			})
		}()
	}
	wg.Wait()

	if n := strings.Count(out.String(), BLOCK_HEADER); n != 50 {
		t.Fatalf("Expected 50 blocks, got %d", n)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines)%8 != 0 {
		t.Fatalf("Expected whole 8-line blocks, got %d lines", len(lines))
	}
	for i := 0; i < len(lines); i += 8 {
		if lines[i] != BLOCK_HEADER || lines[i+7] != BLOCK_FOOTER {
			t.Fatalf("Block starting at line %d is interleaved: %q", i, lines[i:i+8])
		}
	}
}
