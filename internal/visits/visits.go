// Package visits registers customer visits and their photo or video
// evidence.
package visits

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/medisupply/field-app/internal/api"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/validation"
	"github.com/sirupsen/logrus"
)

// MaxEvidenceBytes is the largest file the visit service accepts.
const MaxEvidenceBytes = 15 << 20

var (
	ErrFileTooLarge     = errors.New("evidence file exceeds 15MB")
	ErrUnknownVisitType = errors.New("is not a known visit type")
	ErrBadDate          = errors.New("must be YYYY-MM-DD")
	ErrBadTime          = errors.New("must be HH:MM")
)

// Form is the visit registration form.
type Form struct {
	ClientID    int64
	Date        string // YYYY-MM-DD
	Time        string // HH:MM
	ContactName string
	VisitType   string
	Objective   string
	Notes       string
	Title       string
}

func (f Form) Validate() error {
	fe := validation.FieldErrors{}
	if f.ClientID <= 0 {
		fe["client_id"] = validation.ErrRequired
	}
	switch {
	case strings.TrimSpace(f.Date) == "":
		fe["date"] = validation.ErrRequired
	case !parses("2006-01-02", f.Date):
		fe["date"] = ErrBadDate
	}
	switch {
	case strings.TrimSpace(f.Time) == "":
		fe["time"] = validation.ErrRequired
	case !parses("15:04", f.Time):
		fe["time"] = ErrBadTime
	}
	if strings.TrimSpace(f.ContactName) == "" {
		fe["contacto_nombre"] = validation.ErrRequired
	}
	switch {
	case f.VisitType == "":
		fe["tipo_visita"] = validation.ErrRequired
	case !slices.Contains(enum.VisitTypes, f.VisitType):
		fe["tipo_visita"] = ErrUnknownVisitType
	}
	if strings.TrimSpace(f.Objective) == "" {
		fe["objetivo_visita"] = validation.ErrRequired
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func parses(layout, s string) bool {
	_, err := time.Parse(layout, strings.TrimSpace(s))
	return err == nil
}

// Request converts a valid form to the gateway payload, reading date and
// time in loc.
func (f Form) Request(loc *time.Location) (model.VisitRequest, error) {
	if err := f.Validate(); err != nil {
		return model.VisitRequest{}, err
	}
	at, err := time.ParseInLocation("2006-01-02 15:04", strings.TrimSpace(f.Date)+" "+strings.TrimSpace(f.Time), loc)
	if err != nil {
		return model.VisitRequest{}, fmt.Errorf("visit datetime: %w", err)
	}
	return model.VisitRequest{
		ClientID:       f.ClientID,
		VisitDatetime:  at,
		Title:          strings.TrimSpace(f.Title),
		Notes:          strings.TrimSpace(f.Notes),
		ContactName:    strings.TrimSpace(f.ContactName),
		VisitType:      f.VisitType,
		VisitObjective: strings.TrimSpace(f.Objective),
	}, nil
}

// InferMIME picks the content type for an upload. A declared full MIME type
// wins; otherwise the file extension decides, then the declared media kind
// ("image" or "video").
func InferMIME(filename, declared string) string {
	if strings.Contains(declared, "/") {
		return declared
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case "":
	default:
		if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
			return strings.TrimSpace(strings.Split(t, ";")[0])
		}
	}
	switch declared {
	case "image":
		return "image/jpeg"
	case "video":
		return "video/mp4"
	}
	return "application/octet-stream"
}

// Client is the visit API surface the service needs. *api.VisitsAPI
// satisfies it.
type Client interface {
	Create(ctx context.Context, req model.VisitRequest) (*model.VisitCreated, error)
	Get(ctx context.Context, id int64) (*model.Visit, error)
	ByClient(ctx context.Context, clientID int64) (*model.VisitList, error)
	UploadEvidence(ctx context.Context, visitID int64, up api.Upload) (*model.EvidenceUpload, error)
	EvidenceURL(ctx context.Context, visitID, evidenceID int64) (*model.EvidenceURL, error)
}

var _ Client = (*api.VisitsAPI)(nil)

type Service struct {
	client Client
	loc    *time.Location
	log    logrus.FieldLogger
}

func NewService(c Client, loc *time.Location, log logrus.FieldLogger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{client: c, loc: loc, log: log}
}

// Register validates the form and creates the visit.
func (s *Service) Register(ctx context.Context, f Form) (*model.VisitCreated, error) {
	req, err := f.Request(s.loc)
	if err != nil {
		return nil, err
	}
	created, err := s.client.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("register visit: %w", err)
	}
	s.log.WithFields(logrus.Fields{"visit_id": created.ID, "client_id": f.ClientID}).Info("visit registered")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Visit, error) {
	return s.client.Get(ctx, id)
}

// History lists a client's visits, newest first.
func (s *Service) History(ctx context.Context, clientID int64) ([]model.Visit, error) {
	list, err := s.client.ByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(list.Items)
	slices.SortStableFunc(out, func(a, b model.Visit) int {
		return b.VisitDatetime.Compare(a.VisitDatetime)
	})
	return out, nil
}

// Attach uploads r as evidence of a visit. size is checked against the
// service limit before anything is sent.
func (s *Service) Attach(ctx context.Context, visitID int64, filename, declared string, size int64, r io.Reader) (*model.EvidenceUpload, error) {
	if size > MaxEvidenceBytes {
		return nil, fmt.Errorf("%s (%.2fMB): %w", filename, float64(size)/(1<<20), ErrFileTooLarge)
	}
	up := api.Upload{
		Filename:    filepath.Base(filename),
		ContentType: InferMIME(filename, declared),
		Body:        io.LimitReader(r, MaxEvidenceBytes+1),
	}
	resp, err := s.client.UploadEvidence(ctx, visitID, up)
	if err != nil {
		return nil, fmt.Errorf("attach evidence: %w", err)
	}
	return resp, nil
}

// AttachFile uploads the file at path as evidence.
func (s *Service) AttachFile(ctx context.Context, visitID int64, path string) (*model.EvidenceUpload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return s.Attach(ctx, visitID, path, "", info.Size(), f)
}

// EvidenceURL regenerates an expired evidence link.
func (s *Service) EvidenceURL(ctx context.Context, visitID, evidenceID int64) (*model.EvidenceURL, error) {
	return s.client.EvidenceURL(ctx, visitID, evidenceID)
}

// IsImage and IsVideo classify stored evidence for display.
func IsImage(e model.Evidence) bool { return strings.HasPrefix(e.ContentType, "image/") }

func IsVideo(e model.Evidence) bool { return strings.HasPrefix(e.ContentType, "video/") }

// FormatSize renders bytes as "1.5 MB".
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
	return s + " " + units[i]
}
