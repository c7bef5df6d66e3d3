package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/pstuifzand/dtsedit/internal/dts"
	"github.com/pstuifzand/dtsedit/internal/logging"
	"github.com/pstuifzand/dtsedit/internal/model"
	"github.com/pstuifzand/dtsedit/internal/scan"
)

// ParseResult is the outcome of a background parse and scan
type ParseResult struct {
	Seq  uint64
	Text string
	Tree *model.Tree
	Scan model.ScanResult
	Err  error
}

type parsed struct {
	tree *model.Tree
	scan model.ScanResult
}

// Worker parses and scans DTS text off the caller's goroutine. Only the
// latest submission is delivered: submitting cancels the previous request
// and a result that is no longer the latest is dropped. Identical texts in
// flight at the same time are parsed once.
type Worker struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	group  singleflight.Group
	logger *slog.Logger
}

// NewWorker creates a worker. A nil logger discards.
func NewWorker(logger *slog.Logger) *Worker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Worker{logger: logger}
}

// Submit starts parsing text. The returned channel yields at most one
// result and is closed afterwards; it is closed without a value when the
// request was cancelled or superseded.
func (w *Worker) Submit(ctx context.Context, text string) <-chan ParseResult {
	w.mu.Lock()
	w.seq++
	seq := w.seq
	if w.cancel != nil {
		w.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	out := make(chan ParseResult, 1)
	go func() {
		defer close(out)
		defer cancel()

		sum := sha256.Sum256([]byte(text))
		ch := w.group.DoChan(hex.EncodeToString(sum[:]), func() (any, error) {
			tree, err := dts.Parse(text)
			if err != nil {
				return nil, err
			}
			return parsed{tree: tree, scan: scan.Scan(tree)}, nil
		})

		select {
		case <-ctx.Done():
			w.logger.Debug("parse request cancelled", "seq", seq)
			return
		case r := <-ch:
			if !w.latest(seq) || ctx.Err() != nil {
				w.logger.Debug("dropping stale parse result", "seq", seq)
				return
			}
			if r.Err != nil {
				out <- ParseResult{Seq: seq, Text: text, Err: r.Err}
				return
			}
			p := r.Val.(parsed)
			tree := p.tree
			if r.Shared {
				tree = tree.Clone()
			}
			out <- ParseResult{Seq: seq, Text: text, Tree: tree, Scan: p.scan}
		}
	}()
	return out
}

// Cancel abandons the pending request, if any
func (w *Worker) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

func (w *Worker) latest(seq uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return seq == w.seq
}
