// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package events

import (
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/metrics"
	"github.com/tomtom215/symbology/internal/models"
)

// ReportsTopic carries report snapshots.
const ReportsTopic = "pipeline.reports"

// Message metadata keys.
const (
	MetadataConfigID = "config_id"
	MetadataClosed   = "closed"
)

// NewPubSub creates the in-process pub/sub. buffer is the per-subscriber
// output channel size.
//
// Publish blocks until the subscriber acks, so a run's snapshots reach the
// store one at a time and in order.
func NewPubSub(buffer int64, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	if logger == nil {
		logger = NewLogger()
	}
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            buffer,
		BlockPublishUntilSubscriberAck: true,
	}, logger)
}

// NewLogger returns a Watermill logger writing through the zerolog bridge.
func NewLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

// Publisher publishes report snapshots.
type Publisher struct {
	pub   message.Publisher
	topic string
}

// NewPublisher wraps pub. Snapshots go to ReportsTopic.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub, topic: ReportsTopic}
}

// PublishReport publishes r.
func (p *Publisher) PublishReport(r models.Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataConfigID, r.ConfigID)
	msg.Metadata.Set(MetadataClosed, strconv.FormatBool(!r.InProgress()))

	if err := p.pub.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	return nil
}

// WriteMetric returns a write hook publishing every snapshot. Publish
// failures are logged and counted; the run carries on.
func (p *Publisher) WriteMetric() models.WriteMetricFunc {
	return func(r models.Report) {
		err := p.PublishReport(r)
		metrics.RecordReportPublish(err)
		if err != nil {
			logging.Error().Err(err).Str("config_id", r.ConfigID).Msg("Failed to publish report")
		}
	}
}
