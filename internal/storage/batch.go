package storage

import (
	"context"
	"io"
)

// File is one upload candidate. Open is called once, right before the
// upload, and the reader is closed afterwards.
type File struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// UploadFailure records why one file was not stored.
type UploadFailure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// UploadReport is the outcome of UploadAll. Uploaded holds public URLs in
// input order.
type UploadReport struct {
	Uploaded []string        `json:"uploaded"`
	Failed   []UploadFailure `json:"failed"`
}

// UploadAll stores every file under prefix. A failing file is recorded and
// the rest are still attempted. A cancelled context fails the remaining
// files.
func (s *Store) UploadAll(ctx context.Context, prefix string, files []File) UploadReport {
	report := UploadReport{Uploaded: []string{}, Failed: []UploadFailure{}}
	for _, f := range files {
		url, err := s.uploadOne(ctx, prefix, f)
		if err != nil {
			report.Failed = append(report.Failed, UploadFailure{File: f.Name, Error: err.Error()})
			continue
		}
		report.Uploaded = append(report.Uploaded, url)
	}
	return report
}

func (s *Store) uploadOne(ctx context.Context, prefix string, f File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r, err := f.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	key := ObjectKey(prefix, f.Name)
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.Upload(ctx, key, r, contentType); err != nil {
		return "", err
	}
	return s.PublicURL(key), nil
}
