package visits_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/medisupply/field-app/internal/api"
	"github.com/medisupply/field-app/internal/enum"
	"github.com/medisupply/field-app/internal/model"
	"github.com/medisupply/field-app/internal/validation"
	"github.com/medisupply/field-app/internal/visits"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	created  model.VisitRequest
	uploaded api.Upload
	body     string
	list     []model.Visit
}

func (f *fakeClient) Create(_ context.Context, req model.VisitRequest) (*model.VisitCreated, error) {
	f.created = req
	return &model.VisitCreated{ID: 77, Message: "ok"}, nil
}

func (f *fakeClient) Get(_ context.Context, id int64) (*model.Visit, error) {
	return &model.Visit{ID: id}, nil
}

func (f *fakeClient) ByClient(context.Context, int64) (*model.VisitList, error) {
	return &model.VisitList{Items: f.list, Total: len(f.list)}, nil
}

func (f *fakeClient) UploadEvidence(_ context.Context, _ int64, up api.Upload) (*model.EvidenceUpload, error) {
	f.uploaded = up
	b, _ := io.ReadAll(up.Body)
	f.body = string(b)
	return &model.EvidenceUpload{Count: 1}, nil
}

func (f *fakeClient) EvidenceURL(context.Context, int64, int64) (*model.EvidenceURL, error) {
	return &model.EvidenceURL{URL: "https://signed"}, nil
}

func validForm() visits.Form {
	return visits.Form{
		ClientID:    5,
		Date:        "2025-11-25",
		Time:        "09:30",
		ContactName: " Dra. Pérez ",
		VisitType:   enum.VisitTypeFollowUp,
		Objective:   "Revisar inventario",
	}
}

func TestForm_Validate(t *testing.T) {
	require.NoError(t, validForm().Validate())

	f := validForm()
	f.Date = "25/11/2025"
	f.Time = ""
	f.VisitType = "Almuerzo"
	f.ContactName = "  "
	err := f.Validate()

	var fe validation.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, fe["date"], visits.ErrBadDate)
	assert.ErrorIs(t, fe["time"], validation.ErrRequired)
	assert.ErrorIs(t, fe["tipo_visita"], visits.ErrUnknownVisitType)
	assert.ErrorIs(t, fe["contacto_nombre"], validation.ErrRequired)
	assert.NotContains(t, fe, "objetivo_visita")
}

func TestService_Register(t *testing.T) {
	c := &fakeClient{}
	bogota := time.FixedZone("COT", -5*3600)
	log, _ := test.NewNullLogger()
	svc := visits.NewService(c, bogota, log)

	created, err := svc.Register(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, int64(77), created.ID)

	assert.Equal(t, "Dra. Pérez", c.created.ContactName)
	assert.True(t, c.created.VisitDatetime.Equal(time.Date(2025, 11, 25, 14, 30, 0, 0, time.UTC)))
}

func TestService_History_NewestFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &fakeClient{list: []model.Visit{
		{ID: 1, VisitDatetime: base},
		{ID: 3, VisitDatetime: base.Add(48 * time.Hour)},
		{ID: 2, VisitDatetime: base.Add(24 * time.Hour)},
	}}
	svc := visits.NewService(c, nil, logrus.New())

	got, err := svc.History(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(1), got[2].ID)
}

func TestInferMIME(t *testing.T) {
	tests := []struct {
		name, declared, want string
	}{
		{"foto.JPG", "", "image/jpeg"},
		{"foto.png", "image", "image/png"},
		{"clip.mp4", "", "video/mp4"},
		{"capture", "image", "image/jpeg"},
		{"capture", "video", "video/mp4"},
		{"scan.bin", "image/webp", "image/webp"},
		{"blob", "", "application/octet-stream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, visits.InferMIME(tt.name, tt.declared), tt.name)
	}
}

func TestService_AttachFile(t *testing.T) {
	c := &fakeClient{}
	svc := visits.NewService(c, nil, logrus.New())
	path := filepath.Join(t.TempDir(), "entrega.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o600))

	resp, err := svc.AttachFile(context.Background(), 9, path)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "entrega.png", c.uploaded.Filename)
	assert.Equal(t, "image/png", c.uploaded.ContentType)
	assert.Equal(t, "png-bytes", c.body)
}

func TestService_AttachTooLarge(t *testing.T) {
	c := &fakeClient{}
	svc := visits.NewService(c, nil, logrus.New())

	_, err := svc.Attach(context.Background(), 9, "video.mp4", "", visits.MaxEvidenceBytes+1, strings.NewReader(""))
	assert.ErrorIs(t, err, visits.ErrFileTooLarge)
	assert.Empty(t, c.uploaded.Filename)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", visits.FormatSize(0))
	assert.Equal(t, "512 B", visits.FormatSize(512))
	assert.Equal(t, "1.5 KB", visits.FormatSize(1536))
	assert.Equal(t, "15 MB", visits.FormatSize(15<<20))
}
