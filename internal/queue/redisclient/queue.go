package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/geocoder89/userhub/internal/jobs"
	"github.com/redis/go-redis/v9"
)

const (
	readyKey   = "userhub:jobs:ready"
	delayedKey = "userhub:jobs:delayed"
)

var ErrNoJob = errors.New("no job available")

// Enqueue pushes a job onto the ready list for immediate pickup.
func (c *Client) Enqueue(ctx context.Context, j jobs.Job) error {
	b, err := json.Marshal(j)

	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	return c.redisdb.LPush(ctx, readyKey, b).Err()
}

// EnqueueDelayed parks a job in the delayed zset until runAt; Promote moves
// it to the ready list once due.
func (c *Client) EnqueueDelayed(ctx context.Context, j jobs.Job, runAt time.Time) error {
	j.RunAt = runAt
	j.Status = jobs.JobPending
	j.UpdatedAt = time.Now().UTC()

	b, err := json.Marshal(j)

	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	return c.redisdb.ZAdd(ctx, delayedKey, redis.Z{
		Score:  float64(runAt.Unix()),
		Member: b,
	}).Err()
}

// Promote moves due delayed jobs onto the ready list. Called from the worker
// poll loop before each dequeue round.
func (c *Client) Promote(ctx context.Context, now time.Time) error {
	due, err := c.redisdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()

	if err != nil {
		return err
	}

	for _, member := range due {
		// remove-then-push: if we crash between the two the job is lost rather
		// than duplicated; notifications tolerate that
		removed, err := c.redisdb.ZRem(ctx, delayedKey, member).Result()

		if err != nil {
			return err
		}

		if removed == 0 {
			// another worker promoted it first
			continue
		}

		if err := c.redisdb.LPush(ctx, readyKey, member).Err(); err != nil {
			return err
		}
	}

	return nil
}

// Dequeue pops the oldest ready job. Returns ErrNoJob when the list is empty.
func (c *Client) Dequeue(ctx context.Context) (jobs.Job, error) {
	raw, err := c.redisdb.RPop(ctx, readyKey).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return jobs.Job{}, ErrNoJob
		}

		return jobs.Job{}, err
	}

	var j jobs.Job

	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return jobs.Job{}, fmt.Errorf("unmarshal job: %w", err)
	}

	return j, nil
}

// Depth reports the ready-list length, for readiness checks.
func (c *Client) Depth(ctx context.Context) (int64, error) {
	return c.redisdb.LLen(ctx, readyKey).Result()
}
