// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package monitoring

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var TicketCreatedAmount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vulnsync_ticket_created_amount",
	Help: "The total number of tickets created",
})

var TicketUpdatedAmount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vulnsync_ticket_updated_amount",
	Help: "The total number of tickets updated",
})

var TicketReopenedAmount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vulnsync_ticket_reopened_amount",
	Help: "The total number of tickets reopened",
})

var TicketClosedAmount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vulnsync_ticket_closed_amount",
	Help: "The total number of tickets closed",
})

var TicketNotApplicableAmount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vulnsync_ticket_not_applicable_amount",
	Help: "The total number of tickets moved to not applicable",
})

var TicketLinkedAmount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vulnsync_ticket_linked_amount",
	Help: "The total number of issue links created",
})

var NotificationsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vulnsync_notifications_processed_total",
	Help: "Notifications processed by stream and outcome",
}, []string{"stream", "result"})

var SyncRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "vulnsync_run_duration_seconds",
	Help:    "Duration of sync runs in seconds",
	Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
})

// PushMetrics sends the default registry to a prometheus pushgateway. A cli
// run ends before any scraper could collect the values.
func PushMetrics(ctx context.Context, gatewayURL string, job string) error {
	if gatewayURL == "" {
		return nil
	}
	err := push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx)
	return errors.Wrap(err, "could not push metrics")
}
