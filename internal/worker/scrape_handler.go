package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gorm.io/gorm/clause"

	"jobPilot/internal/database"
	"jobPilot/internal/errcode"
	"jobPilot/internal/scrape"
	"jobPilot/internal/tasks"
)

type scraperReport struct {
	Name    string `json:"name"`
	Added   int    `json:"added"`
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// HandleScraping 运行一个或全部数据源并把新职位入库。
// 单个数据源失败不中断其余数据源，结果里逐源汇报。
func (h *Handlers) HandleScraping(ctx context.Context, t *tasks.Task) (json.RawMessage, error) {
	var payload tasks.ScrapingPayload
	if err := unmarshalPayload(t, &payload); err != nil {
		return nil, err
	}

	sources, err := h.scrapers.Pick(payload.Source)
	if err != nil {
		return failedResult(errcode.ResourceMissing, err.Error())
	}

	totalAdded, totalSkipped := 0, 0
	reports := make([]scraperReport, 0, len(sources))

	for _, src := range sources {
		h.log.Info("running scraper",
			slog.String("source", src.Name()),
			slog.String("query", payload.Query),
		)

		listings, err := src.Scrape(ctx, payload.Query, payload.Location)
		if err != nil {
			h.log.Error("scraper failed",
				slog.String("source", src.Name()),
				slog.Any("error", err),
			)
			reports = append(reports, scraperReport{Name: src.Name(), Error: err.Error()})
			continue
		}

		added, skipped, err := h.storeListings(ctx, listings)
		if err != nil {
			return nil, err
		}
		totalAdded += added
		totalSkipped += skipped
		reports = append(reports, scraperReport{Name: src.Name(), Added: added, Skipped: skipped})
	}

	return successResult(
		fmt.Sprintf("Scraping complete. Added %d jobs.", totalAdded),
		map[string]any{
			"added":    totalAdded,
			"skipped":  totalSkipped,
			"scrapers": reports,
		},
	)
}

// storeListings 批量入库，靠 URL 唯一索引去重。
func (h *Handlers) storeListings(ctx context.Context, listings []scrape.Listing) (added, skipped int, err error) {
	for _, l := range listings {
		job := database.Job{
			Title:       l.Title,
			Company:     l.Company,
			Location:    l.Location,
			URL:         l.URL,
			Source:      l.Source,
			Description: l.Description,
			SalaryText:  l.SalaryText,
			JobType:     l.JobType,
			PostedDate:  l.PostedDate,
			Status:      database.JobStatusScraped,
		}
		res := h.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&job)
		if res.Error != nil {
			return 0, 0, fmt.Errorf("insert job %q: %w", l.URL, res.Error)
		}
		if res.RowsAffected > 0 {
			added++
		} else {
			skipped++
		}
	}
	return added, skipped, nil
}
