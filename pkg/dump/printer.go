package dump

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sync"

	"targetapi/pkg/models"
	"targetapi/pkg/utils/logger"
	"targetapi/pkg/utils/regex"
)

// Publisher receives every rendered block after it has been printed.
type Publisher interface {
	Publish(ctx context.Context, block string) error
}

type Printer struct {
	out           io.Writer
	mu            sync.Mutex
	redact        *regexp.Regexp
	decodeCharset bool
	publisher     Publisher
	logger        *logger.Logger
}

func NewPrinter(out io.Writer, cfg *models.DumpConfig, publisher Publisher, logger *logger.Logger) (*Printer, error) {
	p := &Printer{
		out:       out,
		publisher: publisher,
		logger:    logger,
	}

	if cfg != nil {
		re, err := regex.CombinePatterns(cfg.RedactHeaders, true)
		if err != nil {
			return nil, fmt.Errorf("failed to compile redactHeaders: %w", err)
		}
		p.redact = re
		p.decodeCharset = cfg.DecodeCharset
	}

	return p, nil
}

// Print writes the block in a single Write call so that concurrent requests
// never interleave on the console. Failures are logged, never returned.
func (p *Printer) Print(ctx context.Context, d *RequestDump) {
	block := d.Render(p.redact, p.decodeCharset)

	p.mu.Lock()
	_, err := io.WriteString(p.out, block)
	p.mu.Unlock()
	if err != nil {
		p.logger.Warn(fmt.Sprintf("Failed to write request dump: %v", err))
	}

	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, block); err != nil {
		p.logger.Warn(fmt.Sprintf("Failed to mirror request dump: %v", err))
	}
}
