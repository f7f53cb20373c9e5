// Package pubsub owns the Pub/Sub connection used by the outbox relay.
// PUBSUB_EMULATOR_HOST is honoured by the underlying SDK.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wallcraft/storefront-backend/pkg/config"
	"github.com/wallcraft/storefront-backend/pkg/logger"
)

var errClosed = errors.New("pubsub: client not initialized")

// Client caches one publisher per topic. Publishers batch in background
// goroutines, so they are shared rather than created per message, and
// stopped (flushing pending messages) on Close.
type Client struct {
	sdk     *pubsub.Client
	project string
	orders  string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects and checks the orders topic exists, creating it when
// cfg.CreateTopics is set.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("pubsub: gcp project id is required")
	}
	orders := topicPath(project, cfg.OrdersTopic)
	if orders == "" {
		return nil, errors.New("pubsub: orders topic is required")
	}

	var opts []option.ClientOption
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	sdk, err := pubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: connect: %w", err)
	}

	c := &Client{sdk: sdk, project: project, orders: orders, publishers: map[string]*pubsub.Publisher{}}
	err = c.checkTopic(ctx, orders)
	if status.Code(errors.Unwrap(err)) == codes.NotFound && cfg.CreateTopics {
		_, err = sdk.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: orders})
		if err == nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "topic", orders), "pubsub.topic_created")
		}
	}
	if err != nil {
		_ = sdk.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", orders), "pubsub.connected")
	}
	return c, nil
}

func (c *Client) checkTopic(ctx context.Context, path string) error {
	if _, err := c.sdk.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: path}); err != nil {
		return fmt.Errorf("pubsub: topic %s: %w", path, err)
	}
	return nil
}

// Publisher returns the shared publisher for topic, given as an id or a full
// resource name. It returns nil on a nil client or blank topic.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.sdk == nil {
		return nil
	}
	path := topicPath(c.project, topic)
	if path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[path]; ok {
		return p
	}
	p := c.sdk.Publisher(path)
	c.publishers[path] = p
	return p
}

// Ping checks the orders topic is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.sdk == nil {
		return errClosed
	}
	return c.checkTopic(ctx, c.orders)
}

// Close stops every cached publisher, then the connection.
func (c *Client) Close() error {
	if c == nil || c.sdk == nil {
		return nil
	}
	c.mu.Lock()
	for path, p := range c.publishers {
		p.Stop()
		delete(c.publishers, path)
	}
	c.mu.Unlock()
	return c.sdk.Close()
}

// topicPath expands a topic id to projects/<project>/topics/<id>. Full
// resource names pass through.
func topicPath(project, topic string) string {
	topic = strings.TrimSpace(topic)
	switch {
	case topic == "":
		return ""
	case strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/"):
		return topic
	case project == "":
		return ""
	}
	return "projects/" + project + "/topics/" + topic
}
