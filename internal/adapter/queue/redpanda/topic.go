package redpanda

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// requester is satisfied by *kgo.Client.
type requester interface {
	Request(ctx context.Context, req kmsg.Request) (kmsg.Response, error)
}

// createTopicIfNotExists issues a CreateTopics request and treats
// TOPIC_ALREADY_EXISTS as success.
func createTopicIfNotExists(ctx context.Context, client requester, topic string, partitions int32, replicationFactor int16) error {
	if topic == "" {
		return fmt.Errorf("topic name cannot be empty")
	}
	if partitions <= 0 {
		return fmt.Errorf("partitions must be greater than 0")
	}
	if replicationFactor <= 0 {
		return fmt.Errorf("replication factor must be greater than 0")
	}

	req := kmsg.NewCreateTopicsRequest()
	req.TimeoutMillis = 30000
	topicReq := kmsg.NewCreateTopicsRequestTopic()
	topicReq.Topic = topic
	topicReq.NumPartitions = partitions
	topicReq.ReplicationFactor = replicationFactor
	req.Topics = append(req.Topics, topicReq)

	resp, err := client.Request(ctx, &req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	createTopicsResp, ok := resp.(*kmsg.CreateTopicsResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}

	for _, topicResp := range createTopicsResp.Topics {
		if err := kerr.ErrorForCode(topicResp.ErrorCode); err != nil {
			if err == kerr.TopicAlreadyExists {
				slog.Debug("topic already exists", slog.String("topic", topicResp.Topic))
				continue
			}
			msg := ""
			if topicResp.ErrorMessage != nil {
				msg = *topicResp.ErrorMessage
			}
			return fmt.Errorf("create topic %s: %w %s", topicResp.Topic, err, msg)
		}
		slog.Info("topic created",
			slog.String("topic", topicResp.Topic),
			slog.Int("partitions", int(partitions)),
			slog.Int("replication_factor", int(replicationFactor)))
	}
	return nil
}
