package core

import (
	"context"
	"fmt"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"
)

// StartReferenceRefresh reloads the reference cache on schedule, a standard five field
// cron expression or a descriptor such as @daily. Stop the returned cron on shutdown.
func StartReferenceRefresh(ctx context.Context, rc *ReferenceCache, schedule string) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		table, err := rc.Refresh(ctx)
		if err != nil {
			log.Error().Err(err).Str("schedule", schedule).Msg("scheduled reference refresh failed")
			return
		}
		log.Info().Int("constituents", len(table)).Msg("scheduled reference refresh complete")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid reference refresh schedule %q: %w", schedule, err)
	}

	c.Start()
	log.Info().Str("schedule", schedule).Msg("reference refresh scheduler started")

	return c, nil
}
