package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	pkglog "github.com/weiawesome/wes-io-live/profile-image-service/pkg/log"
)

// channelToTopicAndKey converts a Redis-style channel to a Kafka topic and message key.
//
//	"profile:user:U1:image_state"       → topic: "profile-image-state", key: "U1"
//	"call:conversation:C1:participants" → topic: "call-participants", key: "C1"
func channelToTopicAndKey(channel string) (topic, key string, err error) {
	// Expected format: {domain}:{scope}:{id}:{event}
	parts := strings.Split(channel, ":")
	if len(parts) != 4 || parts[0] == "" || parts[2] == "" || parts[3] == "" {
		return "", "", fmt.Errorf("invalid channel format: %s", channel)
	}

	topic = parts[0] + "-" + strings.ReplaceAll(parts[3], "_", "-")
	return topic, parts[2], nil
}

// KafkaPubSub implements PubSub interface using Apache Kafka.
type KafkaPubSub struct {
	producer *kafka.Producer
	config   KafkaConfig
	doneCh   chan struct{}

	mu      sync.Mutex
	cancels map[int]context.CancelFunc
	nextID  int
	wg      sync.WaitGroup
}

// NewKafkaPubSub creates a new Kafka-based PubSub instance.
func NewKafkaPubSub(cfg KafkaConfig) (*KafkaPubSub, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	kps := &KafkaPubSub{
		producer: p,
		config:   cfg,
		doneCh:   make(chan struct{}),
		cancels:  make(map[int]context.CancelFunc),
	}

	go kps.deliveryReportHandler()

	if err := kps.ensureTopics(); err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Msg("failed to ensure kafka topics (may already exist)")
	}

	return kps, nil
}

// ensureTopics creates the fixed topics if they don't exist.
func (k *KafkaPubSub) ensureTopics() error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": k.config.Brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	partitions := k.config.Partitions
	if partitions <= 0 {
		partitions = 4
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var topics []kafka.TopicSpecification
	for _, channel := range []string{ProfileImageStateChannel("_"), CallParticipantsChannel("_")} {
		topic, _, _ := channelToTopicAndKey(channel)
		topics = append(topics, kafka.TopicSpecification{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		})
	}

	results, err := admin.CreateTopics(ctx, topics)
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}

	l := pkglog.L()
	for _, r := range results {
		if r.Error.Code() != kafka.ErrNoError && r.Error.Code() != kafka.ErrTopicAlreadyExists {
			l.Warn().Str("topic", r.Topic).Str("error", r.Error.String()).Msg("failed to create kafka topic")
		}
	}

	return nil
}

// deliveryReportHandler processes delivery reports from the producer.
func (k *KafkaPubSub) deliveryReportHandler() {
	l := pkglog.L()
	for e := range k.producer.Events() {
		if ev, ok := e.(*kafka.Message); ok && ev.TopicPartition.Error != nil {
			l.Error().Err(ev.TopicPartition.Error).Msg("kafka pubsub delivery failed")
		}
	}
	close(k.doneCh)
}

// Publish publishes an event to the specified channel (converted to Kafka topic + key).
func (k *KafkaPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	topic, key, err := channelToTopicAndKey(channel)
	if err != nil {
		return fmt.Errorf("failed to parse channel: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(key),
		Value: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	return nil
}

// Subscribe consumes the channel's topic, keeping only messages keyed by the channel id.
func (k *KafkaPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	topic, key, err := channelToTopicAndKey(channel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel: %w", err)
	}

	groupID := k.config.GroupID
	if groupID == "" {
		groupID = "pubsub-default"
	}

	// Every subscriber sees every message, so each gets its own group.
	consumerGroupID := fmt.Sprintf("%s-%s-%d", groupID, sanitizeGroupID(channel), time.Now().UnixNano())

	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":       k.config.Brokers,
		"group.id":                consumerGroupID,
		"auto.offset.reset":       "latest",
		"enable.auto.commit":      true,
		"auto.commit.interval.ms": 5000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	if err := c.Subscribe(topic, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(ctx)

	k.mu.Lock()
	id := k.nextID
	k.nextID++
	k.cancels[id] = cancel
	k.mu.Unlock()

	eventCh := make(chan *Event, 100)
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		defer k.forget(id)
		k.consumeMessages(subCtx, c, eventCh, key)
	}()

	return eventCh, nil
}

// consumeMessages polls Kafka and forwards events to the channel.
func (k *KafkaPubSub) consumeMessages(ctx context.Context, c *kafka.Consumer, eventCh chan<- *Event, filterKey string) {
	defer close(eventCh)
	defer c.Close()

	l := pkglog.Ctx(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev := c.Poll(500)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			if string(e.Key) != filterKey {
				continue
			}

			var event Event
			if err := json.Unmarshal(e.Value, &event); err != nil {
				l.Warn().Err(err).Msg("kafka pubsub: failed to unmarshal event")
				continue
			}

			select {
			case eventCh <- &event:
			case <-ctx.Done():
				return
			default:
				// Channel full, skip message
			}

		case kafka.Error:
			l.Error().Err(e).Int("code", int(e.Code())).Bool("fatal", e.IsFatal()).Msg("kafka pubsub error")
			if e.IsFatal() {
				return
			}
		}
	}
}

func (k *KafkaPubSub) forget(id int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if cancel, ok := k.cancels[id]; ok {
		cancel()
		delete(k.cancels, id)
	}
}

// Close stops all consumers and closes the producer.
func (k *KafkaPubSub) Close() error {
	k.mu.Lock()
	for _, cancel := range k.cancels {
		cancel()
	}
	k.mu.Unlock()
	k.wg.Wait()

	k.producer.Flush(5000)
	k.producer.Close()
	<-k.doneCh

	return nil
}

// sanitizeGroupID replaces characters not suitable for Kafka group IDs.
var groupIDRegexp = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func sanitizeGroupID(s string) string {
	return groupIDRegexp.ReplaceAllString(s, "-")
}
