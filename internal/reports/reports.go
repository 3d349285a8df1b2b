package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"budgetbuddy/internal/api"
	"budgetbuddy/internal/logging"
	"budgetbuddy/internal/storage"
)

const (
	TypeMonthly = "monthly"
	pdfExt      = ".pdf"
)

// Fetcher downloads a generated report from the backend.
type Fetcher interface {
	Report(ctx context.Context, reportType string) (*api.Report, error)
}

type Saved struct {
	Name        string
	Path        string
	ContentType string
	Data        []byte
}

// Service downloads backend reports into local storage.
type Service struct {
	fetcher Fetcher
	store   *storage.LocalStorage
	now     func() time.Time
	logger  zerolog.Logger
}

func NewService(f Fetcher, store *storage.LocalStorage) *Service {
	return &Service{
		fetcher: f,
		store:   store,
		now:     time.Now,
		logger:  logging.New("reports"),
	}
}

// FileName is the local name of a report downloaded on day.
func FileName(day time.Time) string {
	return "budget_report_" + day.Format("2006-01-02") + pdfExt
}

// Download fetches a report of reportType and saves it as today's report.
func (s *Service) Download(ctx context.Context, reportType string) (*Saved, error) {
	if reportType == "" {
		reportType = TypeMonthly
	}
	report, err := s.fetcher.Report(ctx, reportType)
	if err != nil {
		return nil, err
	}

	name := FileName(s.now())
	path, err := s.store.Save(name, bytes.NewReader(report.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	contentType := report.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	s.logger.Info().Str("file", name).Int("bytes", len(report.Data)).Str("type", reportType).Msg("report downloaded")
	return &Saved{Name: name, Path: path, ContentType: contentType, Data: report.Data}, nil
}

// List returns previously downloaded reports, newest first.
func (s *Service) List() ([]storage.File, error) {
	return s.store.List(pdfExt)
}

func (s *Service) Path(name string) (string, error) {
	return s.store.GetPath(name)
}
