package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/mitrasign/internal/common"
	"github.com/dmitrijs2005/mitrasign/internal/logging"
	"github.com/dmitrijs2005/mitrasign/internal/server/access"
	"github.com/dmitrijs2005/mitrasign/internal/server/models"
	"github.com/dmitrijs2005/mitrasign/internal/server/reports"
	"github.com/dmitrijs2005/mitrasign/internal/server/repositories/repomanager"
)

// Report describes an exported admin report.
type Report struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	GeneratedAt time.Time `json:"generated_at"`
}

type reportDocument struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Stats       *models.Stats          `json:"stats"`
	Signers     []models.SignerSummary `json:"signers"`
}

// AdminService computes the admin dashboard views.
type AdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	reports     reports.Store
	logger      logging.Logger
	now         func() time.Time
	location    *time.Location
	dateLayout  string
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, store reports.Store, logger logging.Logger,
	dateLayout string, loc *time.Location) *AdminService {
	return &AdminService{
		db:          db,
		repomanager: m,
		reports:     store,
		logger:      logger.With("module", "admin"),
		now:         time.Now,
		location:    loc,
		dateLayout:  dateLayout,
	}
}

// Today renders the current local date the way signers type it.
func (s *AdminService) Today() string {
	return s.now().In(s.location).Format(s.dateLayout)
}

// Stats returns the signer and record totals plus the number of records
// dated today. The three counts are read concurrently.
func (s *AdminService) Stats(ctx context.Context, caller access.Caller) (*models.Stats, error) {
	if err := access.CanAggregate(caller); err != nil {
		return nil, err
	}

	stats := &models.Stats{Today: s.Today()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.repomanager.Profiles(s.db).Count(gctx)
		stats.TotalSigners = n
		return err
	})
	g.Go(func() error {
		n, err := s.repomanager.Signatures(s.db).Count(gctx)
		stats.TotalSignatures = n
		return err
	})
	g.Go(func() error {
		n, err := s.repomanager.Signatures(s.db).CountByDateSigned(gctx, stats.Today)
		stats.TodaySignatures = n
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// Signers lists every profile with its record count, ordered by full name,
// followed by one row per creator id without a profile, ordered by id.
// filter matches full name or unit name, ignoring case; rows without a
// profile are only listed when filter is empty.
func (s *AdminService) Signers(ctx context.Context, caller access.Caller, filter string) ([]models.SignerSummary, error) {
	if err := access.CanAggregate(caller); err != nil {
		return nil, err
	}

	var (
		profiles []*models.Profile
		counts   map[string]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = s.repomanager.Profiles(s.db).List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.repomanager.Signatures(s.db).CountByCreator(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	needle := strings.ToLower(filter)
	out := make([]models.SignerSummary, 0, len(profiles))
	for _, p := range profiles {
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.FullName), needle) &&
			!strings.Contains(strings.ToLower(p.UnitName), needle) {
			continue
		}
		out = append(out, models.SignerSummary{
			ID:             p.ID,
			FullName:       p.FullName,
			UnitName:       p.UnitName,
			Role:           p.Role.String(),
			SignatureCount: counts[p.ID],
			Known:          true,
		})
	}
	if needle != "" {
		return out, nil
	}

	known := make(map[string]struct{}, len(profiles))
	for _, p := range profiles {
		known[p.ID] = struct{}{}
	}
	orphans := make([]string, 0)
	for id := range counts {
		if _, ok := known[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	slices.Sort(orphans)
	for _, id := range orphans {
		out = append(out, models.SignerSummary{ID: id, SignatureCount: counts[id]})
	}
	return out, nil
}

// ExportReport writes the current stats and signer list as JSON to object
// storage and returns a time-limited download link.
func (s *AdminService) ExportReport(ctx context.Context, caller access.Caller) (*Report, error) {
	stats, err := s.Stats(ctx, caller)
	if err != nil {
		return nil, err
	}
	signers, err := s.Signers(ctx, caller, "")
	if err != nil {
		return nil, err
	}

	doc := reportDocument{GeneratedAt: s.now().UTC(), Stats: stats, Signers: signers}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	key, url, err := s.reports.Put(ctx, body, "application/json")
	if err != nil {
		return nil, fmt.Errorf("%w: report upload: %w", common.ErrorTransient, err)
	}

	s.logger.Info(ctx, "report exported", "key", key, "by", caller.ID)
	return &Report{Key: key, URL: url, GeneratedAt: doc.GeneratedAt}, nil
}
