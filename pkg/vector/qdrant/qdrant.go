// Package qdrant implements vector.Client against a Qdrant server, following
// papercomputeco-tapes/pkg/vector/chroma's Config/retry-on-connect shape but
// speaking Qdrant's own gRPC client instead of a REST API.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	vectorpkg "github.com/Valino123/trip-memory/pkg/vector"
)

const (
	defaultMaxConnectRetries = 10
	defaultRetryDelay        = 1 * time.Second
	defaultMaxRetryDelay     = 15 * time.Second
)

// Config holds configuration for the Qdrant client.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	MaxRetries    uint
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// Client implements vector.Client using qdrant/go-client.
type Client struct {
	conn   *qdrant.Client
	logger *zap.Logger
}

// NewClient dials Qdrant with exponential backoff retry, matching the
// teacher's Chroma driver's connect-retry loop.
func NewClient(c Config, logger *zap.Logger) (*Client, error) {
	if c.Host == "" {
		return nil, errors.New("qdrant host is required")
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxConnectRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = defaultMaxRetryDelay
	}

	var conn *qdrant.Client
	var err error
	for attempt := range c.MaxRetries {
		conn, err = qdrant.NewClient(&qdrant.Config{
			Host:   c.Host,
			Port:   c.Port,
			APIKey: c.APIKey,
			UseTLS: c.UseTLS,
		})
		if err == nil {
			_, err = conn.HealthCheck(context.Background())
		}
		if err == nil {
			break
		}

		if attempt == c.MaxRetries-1 {
			return nil, fmt.Errorf("connecting to qdrant at %s:%d after %d attempts: %w", c.Host, c.Port, c.MaxRetries, err)
		}

		logger.Warn("failed to connect to qdrant, retrying...",
			zap.Uint("attempt", attempt+1),
			zap.Duration("delay", c.RetryDelay),
			zap.Error(err),
		)

		time.Sleep(c.RetryDelay)
		c.RetryDelay *= 2
		if c.RetryDelay > c.MaxRetryDelay {
			c.RetryDelay = c.MaxRetryDelay
		}
	}

	logger.Info("connected to qdrant", zap.String("host", c.Host), zap.Int("port", c.Port))

	return &Client{conn: conn, logger: logger}, nil
}

// EnsureCollection creates collection with {dim, cosine} only if a
// not-found status is observed; any other outcome is treated as "exists",
// per spec.md §4.1.
func (c *Client) EnsureCollection(ctx context.Context, name string, dim uint64) error {
	exists, err := c.conn.CollectionExists(ctx, name)
	if err != nil {
		c.logger.Warn("checking qdrant collection failed, treating it as existing", zap.String("collection", name), zap.Error(err))
		return nil
	}
	if exists {
		return nil
	}

	err = c.conn.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     dim,
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", name, err)
	}

	c.logger.Info("created qdrant collection", zap.String("collection", name), zap.Uint64("dim", dim))
	return nil
}

// Upsert stores or replaces points by ID.
func (c *Client) Upsert(ctx context.Context, collection string, points []vectorpkg.Point) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qpoints[i] = &qdrant.PointStruct{
			Id: &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Uuid{Uuid: p.ID},
			},
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{Data: p.Vector},
				},
			},
			Payload: payloadToStruct(p.Payload),
		}
	}

	_, err := c.conn.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qpoints,
	})
	if err != nil {
		return fmt.Errorf("upserting %d points into %q: %w", len(points), collection, err)
	}

	c.logger.Debug("upserted points", zap.String("collection", collection), zap.Int("count", len(points)))
	return nil
}

// Search runs a filtered similarity query. Preserves backend order; no
// re-sorting on tied scores, per spec.md §4.3.3.
func (c *Client) Search(ctx context.Context, collection string, q vectorpkg.Query) ([]vectorpkg.ScoredPoint, error) {
	if len(q.Vector) == 0 {
		return nil, nil
	}

	limit := uint64(q.Limit)
	threshold := q.ScoreThreshold

	resp, err := c.conn.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(q.Vector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{matchKeyword("user_id", q.UserID)},
		},
		Limit:          &limit,
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", collection, err)
	}

	hits := make([]vectorpkg.ScoredPoint, len(resp))
	for i, sp := range resp {
		hits[i] = vectorpkg.ScoredPoint{
			Point: vectorpkg.Point{
				ID:      pointIDString(sp.GetId()),
				Payload: structToPayload(sp.GetPayload()),
			},
			Score: sp.GetScore(),
		}
	}

	return hits, nil
}

// Get retrieves points by ID.
func (c *Client) Get(ctx context.Context, collection string, ids []string) ([]vectorpkg.Point, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: id}}
	}

	withVectors := true
	resp, err := c.conn.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    &qdrant.WithVectorsSelector{SelectorOptions: &qdrant.WithVectorsSelector_Enable{Enable: withVectors}},
	})
	if err != nil {
		return nil, fmt.Errorf("getting %d points from %q: %w", len(ids), collection, err)
	}

	points := make([]vectorpkg.Point, len(resp))
	for i, rp := range resp {
		points[i] = vectorpkg.Point{
			ID:      pointIDString(rp.GetId()),
			Vector:  extractVector(rp.GetVectors()),
			Payload: structToPayload(rp.GetPayload()),
		}
	}

	return points, nil
}

// Delete removes points by ID.
func (c *Client) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: id}}
	}

	_, err := c.conn.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting %d points from %q: %w", len(ids), collection, err)
	}

	return nil
}

// Close releases the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
