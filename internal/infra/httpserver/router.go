package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appai "github.com/pavanborigi/deepfake-detect/internal/application/ai"
	appdet "github.com/pavanborigi/deepfake-detect/internal/application/detections"
	domai "github.com/pavanborigi/deepfake-detect/internal/domain/ai"
	domain "github.com/pavanborigi/deepfake-detect/internal/domain/detections"
	"github.com/pavanborigi/deepfake-detect/internal/middleware"
)

type Router struct {
	svc     *appdet.Service
	history *appdet.Projection
	aiSvc   *appai.Service
}

// NewRouter mounts the detection pipeline API. aiSvc may be nil when no AI
// provider is configured; the insight routes then answer 404.
func NewRouter(svc *appdet.Service, history *appdet.Projection, aiSvc *appai.Service) http.Handler {
	r := &Router{svc: svc, history: history, aiSvc: aiSvc}
	mux := chi.NewRouter()

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/detections", r.wrap(r.handleSubmit))
		rt.Get("/detections", r.wrap(r.handleHistory))
		rt.Get("/detections/page", r.wrap(r.handlePage))
		rt.Delete("/detections/{id}", r.wrap(r.handleDelete))
		rt.Get("/submission", r.wrap(r.handleSubmission))
		rt.Post("/submission", r.wrap(r.handleSelectFile))
		rt.Post("/selection", r.wrap(r.handleSelect))
		rt.Get("/summary", r.wrap(r.handleSummary))
		rt.Get("/faults", r.wrap(r.handleFaults))
		if aiSvc != nil {
			rt.Post("/insights", r.wrap(r.handleInsightCreate))
			rt.Get("/insights", r.wrap(r.handleInsightList))
			rt.Get("/insights/{detectionID}", r.wrap(r.handleInsightLatest))
		}
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError carries an explicit status for request-level failures
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(msg string) error { return &httpError{status: http.StatusBadRequest, msg: msg} }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var he *httpError
		if errors.As(err, &he) {
			http.Error(w, he.msg, he.status)
			return
		}
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, domai.ErrQuotaExceeded) {
			http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
			return
		}
		if errors.Is(err, domain.ErrSuperseded) {
			http.Error(w, "superseded by a newer submission", http.StatusConflict)
			return
		}

		// pipeline failures map to distinct user-facing messages
		switch domain.StageOf(err) {
		case domain.StageAuth:
			http.Error(w, "not authenticated", http.StatusUnauthorized)
		case domain.StageUpload:
			http.Error(w, "media upload failed: "+err.Error(), http.StatusBadGateway)
		case domain.StageInfer:
			if errors.Is(err, domain.ErrUnreachable) {
				http.Error(w, "detection service unreachable", http.StatusServiceUnavailable)
			} else {
				http.Error(w, "detection failed: "+err.Error(), http.StatusBadGateway)
			}
		case domain.StagePersist:
			http.Error(w, "could not save detection: "+err.Error(), http.StatusInternalServerError)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/detections
// multipart body with exactly one file in field "file"
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())

	if err := req.ParseMultipartForm(middleware.MaxUploadBytes); err != nil {
		return badRequest("invalid multipart body")
	}
	files := req.MultipartForm.File["file"]
	if len(files) != 1 {
		return badRequest("exactly one file is required in field 'file'")
	}
	hdr := files[0]

	// enforced before any network call
	contentType := hdr.Header.Get("Content-Type")
	if err := middleware.ValidateFileName(hdr.Filename); err != nil {
		return badRequest(err.Error())
	}
	if err := middleware.ValidateUpload(contentType, hdr.Size); err != nil {
		return badRequest(err.Error())
	}

	file, err := hdr.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	middleware.IncrementSubmissions()
	rec, err := r.svc.Submit(req.Context(), appdet.SubmitCommand{
		OwnerID:     owner,
		FileName:    hdr.Filename,
		ContentType: contentType,
		SizeBytes:   hdr.Size,
		File:        file,
	})
	if err != nil {
		middleware.IncrementSubmissionsFailed()
		return err
	}

	return writeJSON(w, rec)
}

// GET /v1/detections?result=all|real|fake
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())

	if raw := req.URL.Query().Get("result"); raw != "" {
		f, err := middleware.ValidateResultFilter(raw)
		if err != nil {
			return badRequest(err.Error())
		}
		if f == "" {
			r.history.SetFilter(owner, appdet.FilterAll)
		} else {
			r.history.SetFilter(owner, appdet.Filter(f))
		}
	}

	recs, err := r.history.Visible(req.Context(), owner)
	if err != nil {
		return err
	}
	return writeJSON(w, recs)
}

// GET /v1/detections/page?page=&page_size=&result=
func (r *Router) handlePage(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	f, err := middleware.ValidateResultFilter(req.URL.Query().Get("result"))
	if err != nil {
		return badRequest(err.Error())
	}

	res, err := r.svc.Paginate(req.Context(), owner, page, middleware.ValidateLimit(size), domain.Classification(f))
	if err != nil {
		return err
	}
	return writeJSON(w, res)
}

// DELETE /v1/detections/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateDetectionID(id); err != nil {
		return badRequest(err.Error())
	}

	if err := r.svc.Delete(req.Context(), owner, domain.DetectionID(id)); err != nil {
		return err
	}
	// a deleted record cannot stay selected
	r.history.ClearSelectionIf(owner, domain.DetectionID(id))

	return writeJSON(w, map[string]string{"status": "deleted", "id": id})
}

// GET /v1/submission
func (r *Router) handleSubmission(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())
	return writeJSON(w, r.svc.Snapshot(owner))
}

// POST /v1/submission
// Body: {"file_name": "<name>"}; announces a newly picked file and abandons
// any in-flight attempt for the owner.
func (r *Router) handleSelectFile(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())
	var body struct {
		FileName string `json:"file_name"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid body")
	}
	if err := middleware.ValidateFileName(body.FileName); err != nil {
		return badRequest(err.Error())
	}
	return writeJSON(w, r.svc.SelectFile(owner, body.FileName))
}

// POST /v1/selection
// Body: {"id": "<detection id>"}; empty id clears the selection.
func (r *Router) handleSelect(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid body")
	}
	if body.ID != "" {
		if err := middleware.ValidateDetectionID(body.ID); err != nil {
			return badRequest(err.Error())
		}
	}
	r.history.Select(owner, domain.DetectionID(body.ID))

	selected, ok := r.history.Selected(owner)
	return writeJSON(w, map[string]any{"selected": string(selected), "active": ok})
}

// GET /v1/summary
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())
	summary, err := r.svc.Summary(req.Context(), owner)
	if err != nil {
		return err
	}
	return writeJSON(w, summary)
}

// GET /v1/faults?limit=20
func (r *Router) handleFaults(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.svc.ListFaults(req.Context(), owner, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// POST /v1/insights
// Body: {"detection_id": "<id>"}
func (r *Router) handleInsightCreate(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())
	var body struct {
		DetectionID string `json:"detection_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid body")
	}
	if err := middleware.ValidateDetectionID(body.DetectionID); err != nil {
		return badRequest(err.Error())
	}

	// Lookup the record through the cache
	recs, err := r.svc.History(req.Context(), owner)
	if err != nil {
		return err
	}
	var rec *domain.DetectionRecord
	for _, c := range recs {
		if string(c.ID) == body.DetectionID {
			rec = c
			break
		}
	}
	if rec == nil {
		return sql.ErrNoRows
	}

	ins, err := r.aiSvc.ExplainAndStore(req.Context(), rec)
	if err != nil {
		return err
	}
	return writeJSON(w, ins)
}

// GET /v1/insights?page=&page_size=
func (r *Router) handleInsightList(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.aiSvc.ListInsights(req.Context(), owner, page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/insights/{detectionID}
func (r *Router) handleInsightLatest(w http.ResponseWriter, req *http.Request) error {
	owner := middleware.GetOwnerFromContext(req.Context())
	id := chi.URLParam(req, "detectionID")
	if err := middleware.ValidateDetectionID(id); err != nil {
		return badRequest(err.Error())
	}

	ins, err := r.aiSvc.LatestForDetection(req.Context(), owner, id)
	if err != nil {
		return err
	}
	return writeJSON(w, ins)
}
