package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/gestura/internal/domain/model"
	"github.com/okian/gestura/internal/domain/types"
)

// RunDependencies defines the run operations used by the handlers.
type RunDependencies interface {
	Submit(ctx context.Context, req types.SubmitRunRequest) (*model.Run, bool, error)
	Run(ctx context.Context, id string) (*model.Run, error)
	Runs(ctx context.Context) ([]*model.Run, error)
	Samples(ctx context.Context, id string) (types.SamplesView, error)
	Preview(ctx context.Context, id string, w io.Writer, label string, limit int) error
	Cancel(ctx context.Context, id string) (*model.Run, error)
}

// RunsHandler handles run requests.
type RunsHandler struct {
	deps         RunDependencies
	maxBodyBytes int64
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps RunDependencies, maxBodyBytes int64) *RunsHandler {
	return &RunsHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandleSubmit handles POST /runs requests.
func (h *RunsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_run"

	var req types.SubmitRunRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Chain) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing chain")))
		return
	}
	if req.Repetitions < 0 || req.NormalizePoints < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("repetitions and normalize_points must not be negative")))
		return
	}

	run, duplicate, err := h.deps.Submit(r.Context(), req)
	if err != nil {
		fail(w, op, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, types.NewRunView(run))
		return
	}
	w.Header().Set("Location", "/runs/"+run.ID)
	writeJSON(w, http.StatusAccepted, types.NewRunView(run))
}

// HandleList handles GET /runs requests.
func (h *RunsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_runs"

	runs, err := h.deps.Runs(r.Context())
	if err != nil {
		fail(w, op, err)
		return
	}
	status := model.RunStatus(r.URL.Query().Get("status"))
	views := make([]types.RunView, 0, len(runs))
	for _, run := range runs {
		if status != "" && run.Status != status {
			continue
		}
		views = append(views, types.NewRunView(run))
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleGet handles GET /runs/{id} requests.
func (h *RunsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_run"

	run, err := h.deps.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewRunView(run))
}

// HandleCancel handles DELETE /runs/{id} requests.
func (h *RunsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	const op = "api.cancel_run"

	run, err := h.deps.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.NewRunView(run))
}

// HandleSamples handles GET /runs/{id}/samples requests.
func (h *RunsHandler) HandleSamples(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_samples"

	view, err := h.deps.Samples(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandlePreview handles GET /runs/{id}/preview.png requests. Query
// parameters: label filters to one label, limit caps samples per label.
func (h *RunsHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "api.preview_run"

	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("invalid limit %q", s)))
			return
		}
		limit = n
	}

	var buf bytes.Buffer
	if err := h.deps.Preview(r.Context(), r.PathValue("id"), &buf, q.Get("label"), limit); err != nil {
		fail(w, op, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
