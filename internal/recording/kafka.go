package recording

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// RoomFinished is the event published for every appended recording.
type RoomFinished struct {
	RecordingID string    `json:"recording_id"`
	RoomID      int       `json:"room_id"`
	Recording   Recording `json:"recording"`
	TsUnixMs    int64     `json:"ts_unix_ms"`
}

// KafkaLog appends to the inner log, then publishes a room_finished event.
// Publishing is best effort: failures are logged and the append still stands.
type KafkaLog struct {
	inner  Log
	writer MessageWriter
	log    *zap.Logger
}

func NewKafkaLog(inner Log, w MessageWriter, log *zap.Logger) *KafkaLog {
	return &KafkaLog{inner: inner, writer: w, log: log}
}

func (k *KafkaLog) Append(ctx context.Context, rec Recording) error {
	if err := k.inner.Append(ctx, rec); err != nil {
		return err
	}

	evt := RoomFinished{
		RecordingID: rec.ID,
		RoomID:      rec.RoomID,
		Recording:   rec,
		TsUnixMs:    time.Now().UnixMilli(),
	}
	b, err := json.Marshal(evt)
	if err != nil {
		k.log.Error("encode room_finished", zap.String("recordingId", rec.ID), zap.Error(err))
		return nil
	}
	msg := kafka.Message{
		Key:   []byte(strconv.Itoa(rec.RoomID)),
		Value: b,
		Time:  time.Now(),
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		k.log.Warn("publish room_finished", zap.Int("roomId", rec.RoomID), zap.Error(err))
	}
	return nil
}

func (k *KafkaLog) List(ctx context.Context) ([]Recording, error) {
	return k.inner.List(ctx)
}
