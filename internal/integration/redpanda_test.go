//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	containerTypes "github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/ai-mock-interview/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port
}

// startRedpanda binds the broker to a fixed host port so the advertised
// address is reachable from the test.
func startRedpanda(t *testing.T, ctx context.Context) string {
	t.Helper()
	port := freePort(t)
	kafkaPort := nat.Port("9092/tcp")
	req := testcontainers.ContainerRequest{
		Image:        "docker.redpanda.com/redpandadata/redpanda:v24.3.1",
		ExposedPorts: []string{string(kafkaPort)},
		Cmd: []string{
			"redpanda", "start",
			"--kafka-addr", "PLAINTEXT://0.0.0.0:9092",
			"--advertise-kafka-addr", fmt.Sprintf("PLAINTEXT://127.0.0.1:%d", port),
			"--mode", "dev-container",
			"--smp", "1",
			"--default-log-level=error",
			"--overprovisioned",
		},
		WaitingFor: wait.ForListeningPort(kafkaPort).WithStartupTimeout(60 * time.Second),
		HostConfigModifier: func(hc *containerTypes.HostConfig) {
			hc.PortBindings = nat.PortMap{
				kafkaPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: fmt.Sprintf("%d", port)}},
			}
		},
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })
	return fmt.Sprintf("127.0.0.1:%d", port)
}

func Test_Producer_Redpanda(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	broker := startRedpanda(t, ctx)
	const topic = "answer-evaluated-it"

	p, err := redpanda.NewProducer(ctx, []string{broker}, topic)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	ev := domain.AnswerEvaluatedEvent{
		AnswerID:            "a1",
		UserID:              "user-1",
		InterviewID:         "iv1",
		QuestionID:          "q1",
		Score:               9,
		MaxScore:            10,
		EligibleForFollowUp: true,
		EvaluatedAt:         time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, p.PublishAnswerEvaluated(ctx, ev))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	var rec *kgo.Record
	for rec == nil && ctx.Err() == nil {
		fetches := consumer.PollFetches(ctx)
		require.Empty(t, fetches.Errors())
		if recs := fetches.Records(); len(recs) > 0 {
			rec = recs[0]
		}
	}
	require.NotNil(t, rec)
	assert.Equal(t, "iv1", string(rec.Key))

	headers := map[string]string{}
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "answer.evaluated", headers["event_type"])
	assert.Equal(t, "a1", headers["answer_id"])

	var got domain.AnswerEvaluatedEvent
	require.NoError(t, json.Unmarshal(rec.Value, &got))
	assert.Equal(t, ev.Score, got.Score)
	assert.True(t, ev.EvaluatedAt.Equal(got.EvaluatedAt))
}
