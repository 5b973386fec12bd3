package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"casualty-dispatch/internal/models"
	"casualty-dispatch/internal/scheduling"
)

// DefaultChannel is the pub/sub channel pass events are published on
const DefaultChannel = "dispatch:passes"

// Publisher sends a payload to a pub/sub channel
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// PassEvent is the JSON message published after each scheduling pass
type PassEvent struct {
	PassID        string            `json:"pass_id"`
	Trigger       string            `json:"trigger"`
	Strategy      string            `json:"strategy"`
	StartedAt     time.Time         `json:"started_at"`
	Pending       int               `json:"pending"`
	TrafficFactor float64           `json:"traffic_factor"`
	Assignments   []AssignmentEvent `json:"assignments"`
}

// AssignmentEvent is one binding inside a PassEvent
type AssignmentEvent struct {
	PatientID  string          `json:"patient_id"`
	Severity   models.Severity `json:"severity"`
	VehicleID  string          `json:"vehicle_id"`
	HospitalID string          `json:"hospital_id"`
	AssignedAt time.Time       `json:"assigned_at"`
}

// NewPassEvent builds the message for a pass report
func NewPassEvent(report scheduling.PassReport) PassEvent {
	evt := PassEvent{
		PassID:        report.ID,
		Trigger:       string(report.Trigger),
		Strategy:      report.Strategy,
		StartedAt:     report.StartedAt,
		Pending:       report.Pending,
		TrafficFactor: report.TrafficFactor,
		Assignments:   make([]AssignmentEvent, 0, len(report.Bindings)),
	}
	for _, b := range report.Bindings {
		evt.Assignments = append(evt.Assignments, AssignmentEvent{
			PatientID:  b.PatientID,
			Severity:   b.Severity,
			VehicleID:  b.VehicleID,
			HospitalID: b.HospitalID,
			AssignedAt: b.AssignedAt,
		})
	}
	return evt
}

// PassNotifier publishes a PassEvent for every scheduling pass.
// It implements scheduling.Observer; publish failures are logged only.
type PassNotifier struct {
	pub     Publisher
	channel string
	logger  *zap.Logger
	timeout time.Duration
	closer  func() error
}

// NewPassNotifier wraps an arbitrary publisher
func NewPassNotifier(pub Publisher, channel string, logger *zap.Logger) *PassNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PassNotifier{
		pub:     pub,
		channel: channel,
		logger:  logger,
		timeout: 2 * time.Second,
		closer:  func() error { return nil },
	}
}

// NewRedisNotifier connects a PassNotifier to Redis pub/sub.
// The client connects lazily on the first publish.
func NewRedisNotifier(url, channel string, logger *zap.Logger) (*PassNotifier, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opt)

	n := NewPassNotifier(redisPublisher{rdb: rdb}, channel, logger)
	n.closer = rdb.Close
	return n, nil
}

// Channel returns the channel events are published on
func (n *PassNotifier) Channel() string {
	return n.channel
}

func (n *PassNotifier) PassCompleted(report scheduling.PassReport) {
	data, err := json.Marshal(NewPassEvent(report))
	if err != nil {
		n.logger.Error("failed to encode pass event", zap.String("pass_id", report.ID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if err := n.pub.Publish(ctx, n.channel, data); err != nil {
		n.logger.Warn("failed to publish pass event",
			zap.String("pass_id", report.ID),
			zap.String("channel", n.channel),
			zap.Error(err),
		)
	}
}

// Close releases the underlying client
func (n *PassNotifier) Close() error {
	return n.closer()
}

type redisPublisher struct {
	rdb *redis.Client
}

func (p redisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.rdb.Publish(ctx, channel, payload).Err()
}
