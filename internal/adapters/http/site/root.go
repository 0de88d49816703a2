// Package site serves the HTML landing page of the service.
package site

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/okian/gestura/internal/domain/types"
	"github.com/okian/gestura/pkg/logger"
)

// Error constants
var (
	ErrServe = errors.New("landing page serve failed")
)

//go:embed index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

// ChainLister lists the chains shown on the landing page.
type ChainLister interface {
	Chains() []types.ChainInfo
}

// Register attaches the landing page to mux at exactly "/".
func Register(_ context.Context, mux *http.ServeMux, chains ChainLister) {
	if mux == nil {
		panic("mux is nil")
	}
	if chains == nil {
		panic("chain lister is nil")
	}
	mux.Handle("GET /{$}", NewRootHandler(chains))
}

// RootHandler renders the landing page.
type RootHandler struct {
	chains ChainLister
}

// NewRootHandler creates a new root handler
func NewRootHandler(chains ChainLister) *RootHandler {
	return &RootHandler{chains: chains}
}

func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Buffered so a render failure can still answer 500.
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, struct{ Chains []types.ChainInfo }{h.chains.Chains()}); err != nil {
		logger.Get().Error(r.Context(), "landing page render failed", logger.Error(err))
		http.Error(w, fmt.Errorf("%w: %w", ErrServe, err).Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
