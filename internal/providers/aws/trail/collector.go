// Package trail retrieves CloudTrail events for the three streams a
// detection run needs: instance launches, role assumptions, and secret
// reads.
//
// The collector is pure plumbing. It never applies business logic or
// filters beyond the server-side EventName lookup attribute; deciding what
// a record means is the correlation core's job.
package trail

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cloudtrailsvc "github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	"go.uber.org/zap"

	"github.com/secopsden/trailguard/internal/models"
	"github.com/secopsden/trailguard/internal/providers/aws/common"
	"github.com/secopsden/trailguard/internal/snapshot"
)

// lookupPageSize is the LookupEvents maximum page size allowed by AWS.
const lookupPageSize = 50

// EventCollector retrieves the three CloudTrail event streams for a
// lookback window ending now.
type EventCollector interface {
	CollectAll(ctx context.Context, client common.CloudTrailClient, days int) (*snapshot.Snapshot, error)
}

// DefaultEventCollector is the production EventCollector. Pagination uses
// the SDK paginator; throttling is absorbed by the SDK's standard retryer,
// so a partially fetched stream surfaces as an error, never as a silently
// truncated snapshot.
type DefaultEventCollector struct {
	log *zap.Logger

	// now is replaceable in tests to pin the lookback window.
	now func() time.Time
}

// NewDefaultEventCollector returns a collector logging through log.
func NewDefaultEventCollector(log *zap.Logger) *DefaultEventCollector {
	return &DefaultEventCollector{log: log, now: time.Now}
}

// CollectAll fetches RunInstances, AssumeRole and GetParameter events for
// the trailing days-day window and returns them as a snapshot. Streams are
// fetched sequentially; any stream failing fails the whole collection.
func (c *DefaultEventCollector) CollectAll(ctx context.Context, client common.CloudTrailClient, days int) (*snapshot.Snapshot, error) {
	if days <= 0 {
		days = 90
	}
	end := c.now().UTC()
	start := end.AddDate(0, 0, -days)

	var snap snapshot.Snapshot
	for _, stream := range []struct {
		eventName string
		dest      *[]models.TrailRecord
	}{
		{models.EventNameRunInstances, &snap.LaunchRecords},
		{models.EventNameAssumeRole, &snap.AssumeRecords},
		{models.EventNameGetParameter, &snap.SecretReadRecords},
	} {
		records, err := c.collectStream(ctx, client, stream.eventName, start, end)
		if err != nil {
			return nil, fmt.Errorf("collect %s events: %w", stream.eventName, err)
		}
		c.log.Info("collected event stream",
			zap.String("event_name", stream.eventName),
			zap.Int("records", len(records)),
		)
		*stream.dest = records
	}
	return &snap, nil
}

// collectStream pages through LookupEvents filtered to a single event name.
func (c *DefaultEventCollector) collectStream(
	ctx context.Context,
	client common.CloudTrailClient,
	eventName string,
	start, end time.Time,
) ([]models.TrailRecord, error) {
	input := &cloudtrailsvc.LookupEventsInput{
		LookupAttributes: []types.LookupAttribute{
			{
				AttributeKey:   types.LookupAttributeKeyEventName,
				AttributeValue: aws.String(eventName),
			},
		},
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		MaxResults: aws.Int32(lookupPageSize),
	}

	var records []models.TrailRecord
	paginator := cloudtrailsvc.NewLookupEventsPaginator(client, input)
	page := 0
	for paginator.HasMorePages() {
		page++
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		for _, ev := range out.Events {
			records = append(records, toTrailRecord(ev))
		}
	}
	return records, nil
}

// toTrailRecord converts an SDK lookup event into the snapshot envelope.
func toTrailRecord(ev types.Event) models.TrailRecord {
	rec := models.TrailRecord{
		EventID:         aws.ToString(ev.EventId),
		EventName:       aws.ToString(ev.EventName),
		Username:        aws.ToString(ev.Username),
		AccessKeyID:     aws.ToString(ev.AccessKeyId),
		CloudTrailEvent: aws.ToString(ev.CloudTrailEvent),
	}
	if ev.EventTime != nil {
		rec.EventTime = ev.EventTime.UTC().Format(time.RFC3339)
	}
	return rec
}
