package handler

import (
	"time"

	"github.com/showcase/internal/db"
	"github.com/showcase/internal/service"
)

type analyticsProvider interface {
	Overview(limit, days int, now time.Time) (service.SiteOverview, error)
	RecordPathView(rawPath, visitorID, referrer string, now time.Time) (*db.PathStatistic, error)
}
