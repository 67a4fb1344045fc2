package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/store"
	"github.com/medisupply/field-app/internal/validation"
	"github.com/medisupply/field-app/internal/visits"
	"github.com/sirupsen/logrus"
)

// evidenceURLTTL is how long a signed evidence download link stays valid.
const evidenceURLTTL = time.Hour

// evidenceFields are the multipart field names accepted for uploads.
var evidenceFields = []string{"image", "video", "file"}

// VisitStore defines the store methods needed by visit handlers.
// Satisfied by *store.Store; narrow interface for testability.
type VisitStore interface {
	CreateVisit(v model.Visit) model.Visit
	Visit(id int64) (model.Visit, error)
	VisitsByClient(clientID int64) []model.Visit
	AddEvidence(visitID int64, filename, contentType string, data []byte, urlFor func(visitID, evidenceID int64) string) (model.Evidence, error)
	Evidence(visitID, evidenceID int64) (model.Evidence, []byte, error)
}

// VisitHandler handles visit logging and evidence endpoints.
type VisitHandler struct {
	store     VisitStore
	jwtSecret string
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewVisitHandler creates a new VisitHandler.
func NewVisitHandler(store VisitStore, jwtSecret string, log logrus.FieldLogger) *VisitHandler {
	return &VisitHandler{store: store, jwtSecret: jwtSecret, log: log, now: time.Now}
}

// RegisterRoutes registers visit endpoints on the given Chi router.
// Expected to be mounted at /api/v1/visits.
func (h *VisitHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/client/{clientID}", h.ByClient)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/evidence", h.UploadEvidence)
		r.Get("/evidence/{eid}/url", h.EvidenceURL)
	})
}

// RegisterFileRoutes registers the signed download endpoint. It is public;
// the signature in ?token= authorizes the download.
func (h *VisitHandler) RegisterFileRoutes(r chi.Router) {
	r.Get("/files/evidencias/{id}/{eid}", h.Download)
}

// --- Handlers ---

// Create logs a visit for the calling account manager.
func (h *VisitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.VisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "invalid request body")
		return
	}
	if err := validateVisit(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, enum.ErrorCodeValidation, err.Error())
		return
	}

	user := caller(r)
	v := h.store.CreateVisit(model.Visit{
		ClientID:       req.ClientID,
		AccountMgrID:   user.ID,
		VisitDatetime:  req.VisitDatetime.UTC(),
		Title:          req.Title,
		Notes:          req.Notes,
		ContactName:    strings.TrimSpace(req.ContactName),
		VisitType:      req.VisitType,
		VisitObjective: strings.TrimSpace(req.VisitObjective),
	})

	h.log.WithFields(logrus.Fields{"visit_id": v.ID, "client_id": v.ClientID}).Info("visit registered")
	writeJSON(w, http.StatusCreated, model.VisitCreated{ID: v.ID, Message: "Visita registrada exitosamente"})
}

// Get returns one visit with its evidence.
func (h *VisitHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, ok := h.visibleVisit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ByClient lists a customer's visits, newest first.
func (h *VisitHandler) ByClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := strconv.ParseInt(chi.URLParam(r, "clientID"), 10, 64)
	if err != nil || clientID <= 0 {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "invalid client id")
		return
	}
	items := h.store.VisitsByClient(clientID)
	writeJSON(w, http.StatusOK, model.VisitList{Items: items, Total: len(items)})
}

// UploadEvidence stores every file part of a multipart upload. Files over
// the size limit reject the whole request with 413.
func (h *VisitHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	v, ok := h.visibleVisit(w, r)
	if !ok {
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "multipart body required")
		return
	}

	type upload struct {
		filename, contentType string
		data                  []byte
	}
	var files []upload
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "malformed multipart body")
			return
		}
		if !slices.Contains(evidenceFields, part.FormName()) || part.FileName() == "" {
			part.Close()
			continue
		}

		data, err := io.ReadAll(io.LimitReader(part, visits.MaxEvidenceBytes+1))
		part.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "read "+part.FileName())
			return
		}
		if len(data) > visits.MaxEvidenceBytes {
			writeError(w, http.StatusRequestEntityTooLarge, enum.ErrorCodeValidation, part.FileName()+": "+visits.ErrFileTooLarge.Error())
			return
		}
		files = append(files, upload{
			filename:    part.FileName(),
			contentType: visits.InferMIME(part.FileName(), part.Header.Get("Content-Type")),
			data:        data,
		})
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "no evidence file in request")
		return
	}

	out := model.EvidenceUpload{Items: make([]model.Evidence, 0, len(files))}
	for _, f := range files {
		e, err := h.store.AddEvidence(v.ID, f.filename, f.contentType, f.data, func(vid, eid int64) string {
			return h.signedURL(r, vid, eid)
		})
		if err != nil {
			writeInternal(w, err)
			return
		}
		out.Items = append(out.Items, e)
	}
	out.Count = len(out.Items)

	h.log.WithFields(logrus.Fields{"visit_id": v.ID, "files": out.Count}).Info("evidence uploaded")
	writeJSON(w, http.StatusCreated, out)
}

// EvidenceURL issues a fresh signed download link.
func (h *VisitHandler) EvidenceURL(w http.ResponseWriter, r *http.Request) {
	v, ok := h.visibleVisit(w, r)
	if !ok {
		return
	}
	eid, err := strconv.ParseInt(chi.URLParam(r, "eid"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "invalid evidence id")
		return
	}
	if _, _, err := h.store.Evidence(v.ID, eid); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, enum.ErrorCodeNotFound, "evidence not found")
			return
		}
		writeInternal(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.EvidenceURL{
		URL:       h.signedURL(r, v.ID, eid),
		ExpiresAt: h.now().Add(evidenceURLTTL).UTC().Truncate(time.Second),
	})
}

// Download serves an evidence file to holders of a signed link.
func (h *VisitHandler) Download(w http.ResponseWriter, r *http.Request) {
	vid, err1 := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	eid, err2 := strconv.ParseInt(chi.URLParam(r, "eid"), 10, 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "invalid evidence path")
		return
	}
	if err := h.checkFileToken(r.URL.Query().Get("token"), vid, eid); err != nil {
		writeError(w, http.StatusForbidden, enum.ErrorCodeForbidden, "invalid or expired link")
		return
	}

	e, data, err := h.store.Evidence(vid, eid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, enum.ErrorCodeNotFound, "evidence not found")
			return
		}
		writeInternal(w, err)
		return
	}

	w.Header().Set("Content-Type", e.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", e.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// --- Helpers ---

// visibleVisit loads the visit in the URL. Managers only see their own
// visits; admins see all. It writes the error response itself.
func (h *VisitHandler) visibleVisit(w http.ResponseWriter, r *http.Request) (model.Visit, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, enum.ErrorCodeValidation, "invalid visit id")
		return model.Visit{}, false
	}
	v, err := h.store.Visit(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, enum.ErrorCodeNotFound, "visit not found")
			return model.Visit{}, false
		}
		writeInternal(w, err)
		return model.Visit{}, false
	}
	if user := caller(r); !user.HasRole(enum.RoleAdmin) && v.AccountMgrID != user.ID {
		writeError(w, http.StatusForbidden, enum.ErrorCodeForbidden, "visit belongs to another manager")
		return model.Visit{}, false
	}
	return v, true
}

func validateVisit(req model.VisitRequest) error {
	fe := validation.FieldErrors{}
	if req.ClientID <= 0 {
		fe["client_id"] = validation.ErrRequired
	}
	if req.VisitDatetime.IsZero() {
		fe["visit_datetime"] = validation.ErrRequired
	}
	if strings.TrimSpace(req.ContactName) == "" {
		fe["contacto_nombre"] = validation.ErrRequired
	}
	switch {
	case req.VisitType == "":
		fe["tipo_visita"] = validation.ErrRequired
	case !slices.Contains(enum.VisitTypes, req.VisitType):
		fe["tipo_visita"] = visits.ErrUnknownVisitType
	}
	if strings.TrimSpace(req.VisitObjective) == "" {
		fe["objetivo_visita"] = validation.ErrRequired
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func fileSubject(vid, eid int64) string {
	return fmt.Sprintf("evidence/%d/%d", vid, eid)
}

// signedURL builds a download link carrying a short-lived HS256 token.
func (h *VisitHandler) signedURL(r *http.Request, vid, eid int64) string {
	now := h.now()
	claims := jwt.RegisteredClaims{
		Subject:   fileSubject(vid, eid),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(evidenceURLTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
	if err != nil {
		h.log.WithError(err).Error("sign evidence url")
		token = ""
	}
	return absoluteURL(r, fmt.Sprintf("/files/evidencias/%d/%d?token=%s", vid, eid, token))
}

func (h *VisitHandler) checkFileToken(tokenStr string, vid, eid int64) error {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	}, jwt.WithTimeFunc(h.now))
	if err != nil {
		return err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject != fileSubject(vid, eid) {
		return errors.New("token does not match file")
	}
	return nil
}
