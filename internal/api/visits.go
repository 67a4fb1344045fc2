package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/medisupply/field-app/internal/model"
)

type VisitsAPI struct{ c *Client }

func (v *VisitsAPI) Create(ctx context.Context, req model.VisitRequest) (*model.VisitCreated, error) {
	var created model.VisitCreated
	err := v.c.do(ctx, request{
		op:      "create visit",
		method:  http.MethodPost,
		path:    "/api/v1/visits",
		headers: headersVisits,
		body:    req,
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (v *VisitsAPI) Get(ctx context.Context, id int64) (*model.Visit, error) {
	var visit model.Visit
	err := v.c.do(ctx, request{
		op:      "get visit",
		method:  http.MethodGet,
		path:    "/api/v1/visits/" + strconv.FormatInt(id, 10),
		headers: headersVisits,
	}, &visit)
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

func (v *VisitsAPI) ByClient(ctx context.Context, clientID int64) (*model.VisitList, error) {
	var list model.VisitList
	err := v.c.do(ctx, request{
		op:      "client visits",
		method:  http.MethodGet,
		path:    "/api/v1/visits/client/" + strconv.FormatInt(clientID, 10),
		headers: headersVisits,
	}, &list)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// Upload is one evidence file.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// formField names the multipart field the visit service expects for a MIME
// type.
func formField(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	}
	return "file"
}

func (v *VisitsAPI) UploadEvidence(ctx context.Context, visitID int64, up Upload) (*model.EvidenceUpload, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, formField(up.ContentType), up.Filename))
	h.Set("Content-Type", up.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, &Error{Op: "upload evidence", Err: err}
	}
	if _, err := io.Copy(part, up.Body); err != nil {
		return nil, &Error{Op: "upload evidence", Err: fmt.Errorf("read %s: %w", up.Filename, err)}
	}
	if err := mw.Close(); err != nil {
		return nil, &Error{Op: "upload evidence", Err: err}
	}

	var resp model.EvidenceUpload
	err = v.c.do(ctx, request{
		op:          "upload evidence",
		method:      http.MethodPost,
		path:        "/api/v1/visits/" + strconv.FormatInt(visitID, 10) + "/evidence",
		headers:     headersVisits,
		raw:         &buf,
		contentType: mw.FormDataContentType(),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// EvidenceURL regenerates the signed URL of an evidence file.
func (v *VisitsAPI) EvidenceURL(ctx context.Context, visitID, evidenceID int64) (*model.EvidenceURL, error) {
	var resp model.EvidenceURL
	err := v.c.do(ctx, request{
		op:      "evidence url",
		method:  http.MethodGet,
		path:    fmt.Sprintf("/api/v1/visits/%d/evidence/%d/url", visitID, evidenceID),
		headers: headersVisits,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
