package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/workstream-hr/attendance-engine-go/internal/domain/employee"
	"github.com/workstream-hr/attendance-engine-go/internal/domain/punch"
	"github.com/workstream-hr/attendance-engine-go/internal/pkg/timeclock"
)

// Service pulls raw punch events from the time-clock source, normalizes
// them into canonical punches and persists them. Re-running over an
// overlapping window is safe: duplicates are dropped in-memory first and by
// the storage unique key second.
type Service struct {
	gateway timeclock.Gateway
	punch.RawPunchRepository
	employee.EmployeeRepository
	location *time.Location
}

func NewService(
	gateway timeclock.Gateway,
	punchRepo punch.RawPunchRepository,
	employeeRepo employee.EmployeeRepository,
	location *time.Location,
) *Service {
	return &Service{
		gateway:            gateway,
		RawPunchRepository: punchRepo,
		EmployeeRepository: employeeRepo,
		location:           location,
	}
}

// Run executes one ingestion pass from the stored watermark. The watermark
// only advances after the whole pass succeeds, so a failed run is retried
// over the same window next time.
func (s *Service) Run(ctx context.Context) error {
	now := time.Now().In(s.location)

	from, err := s.RawPunchRepository.Watermark(ctx)
	if err != nil {
		return fmt.Errorf("failed to read ingestion watermark: %w", err)
	}
	if from.IsZero() {
		from = now.AddDate(0, 0, -7)
	}

	rows, err := s.gateway.FetchPunches(ctx, from)
	if err != nil {
		return fmt.Errorf("%w: %v", punch.ErrSourceUnreachable, err)
	}

	batch, dropped := s.normalize(ctx, rows)
	inserted, err := s.RawPunchRepository.InsertBatch(ctx, batch)
	if err != nil {
		return fmt.Errorf("failed to persist punch batch: %w", err)
	}

	if err := s.RawPunchRepository.SetWatermark(ctx, now); err != nil {
		return fmt.Errorf("failed to advance ingestion watermark: %w", err)
	}

	slog.Info("punch ingestion completed",
		"fetched", len(rows),
		"dropped", dropped,
		"inserted", inserted,
		"skipped_existing", len(batch)-inserted,
	)

	return nil
}

// normalize converts raw gateway rows into canonical punches. Rows with an
// unparsable time or date are dropped with a warning; rows whose badge
// number maps to no employee skip that employee for the run. Both keep the
// rest of the batch flowing.
func (s *Service) normalize(ctx context.Context, rows []timeclock.Row) ([]punch.RawPunch, int) {
	dropped := 0
	employeeIDs := map[string]string{}
	unknown := map[string]bool{}

	var batch []punch.RawPunch
	for _, row := range rows {
		if unknown[row.ExternalEmployeeID] {
			dropped++
			continue
		}

		empID, ok := employeeIDs[row.ExternalEmployeeID]
		if !ok {
			emp, err := s.EmployeeRepository.GetByExternalID(ctx, row.ExternalEmployeeID)
			if err != nil {
				if errors.Is(err, employee.ErrUnknownExternalID) {
					slog.Warn("skipping punches for unmapped badge number", "badge", row.ExternalEmployeeID)
					unknown[row.ExternalEmployeeID] = true
					dropped++
					continue
				}
				slog.Warn("failed to resolve badge number, skipping row", "badge", row.ExternalEmployeeID, "error", err)
				dropped++
				continue
			}
			empID = emp.ID
			employeeIDs[row.ExternalEmployeeID] = empID
		}

		date, err := parseDate(row.Date, s.location)
		if err != nil {
			slog.Warn("dropping punch with unparsable date", "badge", row.ExternalEmployeeID, "date", row.Date)
			dropped++
			continue
		}

		clock, err := NormalizeClockTime(row.Time)
		if err != nil {
			slog.Warn("dropping punch with unparsable time", "badge", row.ExternalEmployeeID, "time", row.Time)
			dropped++
			continue
		}

		batch = append(batch, punch.RawPunch{
			EmployeeID: empID,
			Date:       date,
			PunchTime:  clock,
			Direction:  punch.Direction(strings.ToLower(row.Direction)),
		})
	}

	batch = Deduplicate(batch)
	FillDirections(batch)

	return batch, dropped
}

// NormalizeClockTime converts the heterogeneous device time formats into
// canonical HH:MM:SS: accepts "HH:MM:SS", "HH:MM" and a plain
// seconds-since-midnight count.
func NormalizeClockTime(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", punch.ErrUnparsableTime
	}

	if strings.Contains(raw, ":") {
		layouts := []string{"15:04:05", "15:04"}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.Format("15:04:05"), nil
			}
		}
		return "", punch.ErrUnparsableTime
	}

	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 || secs >= 24*3600 {
		return "", punch.ErrUnparsableTime
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60), nil
}

// Deduplicate removes in-batch duplicates by composite key, keeping the
// first occurrence. Ordering within the batch is preserved.
func Deduplicate(batch []punch.RawPunch) []punch.RawPunch {
	seen := make(map[string]bool, len(batch))
	out := batch[:0]
	for _, p := range batch {
		if seen[p.Key()] {
			continue
		}
		seen[p.Key()] = true
		out = append(out, p)
	}
	return out
}

// FillDirections assigns missing punch directions by alternating in/out per
// employee-day in time order. An odd group of three or more still closes
// with an out: the latest punch is the departure even when a stray punch
// upsets the pairing. This is a fallback heuristic for devices that do not
// report a check type.
func FillDirections(batch []punch.RawPunch) {
	groups := map[string][]int{}
	for i, p := range batch {
		if p.Direction == punch.DirectionIn || p.Direction == punch.DirectionOut {
			continue
		}
		key := p.EmployeeID + "|" + p.Date.Format("2006-01-02")
		groups[key] = append(groups[key], i)
	}

	for _, idxs := range groups {
		sort.Slice(idxs, func(a, b int) bool {
			return batch[idxs[a]].PunchTime < batch[idxs[b]].PunchTime
		})
		for n, i := range idxs {
			if n%2 == 0 {
				batch[i].Direction = punch.DirectionIn
			} else {
				batch[i].Direction = punch.DirectionOut
			}
		}
		if len(idxs) >= 3 && len(idxs)%2 == 1 {
			batch[idxs[len(idxs)-1]].Direction = punch.DirectionOut
		}
	}
}

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	layouts := []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
		}
	}
	return time.Time{}, punch.ErrUnparsableDate
}
