package fairsharing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bianchini88/rdmkit/internal/config"
	"github.com/bianchini88/rdmkit/internal/metrics"
	"github.com/bianchini88/rdmkit/internal/records"
)

// Result summarizes a successful run.
type Result struct {
	RunID         string
	Authenticated bool
	Records       int
	Path          string
}

// Syncer runs the sign-in → fetch → persist sequence once.
type Syncer struct {
	logger  *zap.Logger
	cfg     config.Config
	client  *Client
	writer  *records.Writer
	metrics *metrics.Recorder
	runID   string
	now     func() time.Time
}

// NewSyncer wires a Syncer for one run described by cfg.
func NewSyncer(
	logger *zap.Logger,
	cfg config.Config,
	client *Client,
	writer *records.Writer,
	rec *metrics.Recorder,
) *Syncer {
	runID := uuid.NewString()
	return &Syncer{
		logger:  logger.With(zap.String("run_id", runID)),
		cfg:     cfg,
		client:  client,
		writer:  writer,
		metrics: rec,
		runID:   runID,
		now:     time.Now,
	}
}

// Run performs the download. When authentication is enabled a token must be
// obtained first; any failure stops the run before the output file is touched.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	var token Token
	if s.cfg.AuthEnabled {
		tok, err := s.client.SignIn(ctx, Credentials{Login: s.cfg.Username, Password: s.cfg.Password})
		if err != nil {
			s.logger.Error("fairsharing.sign_in_failed", zap.Error(err))
			return nil, err
		}
		token = tok
	} else {
		s.logger.Info("fairsharing.sign_in_skipped")
	}

	recs, err := s.client.FetchRecords(ctx, token, s.cfg.PageSize)
	if err != nil {
		s.logger.Error("fairsharing.fetch_failed", zap.Error(err))
		return nil, err
	}

	if err := s.writer.Write(s.cfg.OutputPath, recs); err != nil {
		return nil, err
	}

	s.metrics.RecordSuccess(len(recs), s.now())
	s.logger.Info("fairsharing.run_complete",
		zap.Int("records", len(recs)),
		zap.String("path", s.cfg.OutputPath))

	return &Result{
		RunID:         s.runID,
		Authenticated: token != "",
		Records:       len(recs),
		Path:          s.cfg.OutputPath,
	}, nil
}
