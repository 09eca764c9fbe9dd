package store

import (
	"context"
	"fmt"
	"sort"

	apperrors "colindex/pkg/errors"
	"colindex/pkg/redis"
)

// Redis adapts a Redis instance as a wide-column store: one hash per row
// key, one hash field per column. Consistency levels are accepted but not
// differentiated; a single Redis node has only one level to offer.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps an existing Redis client. Keys are namespaced with prefix
// so several indexes can share one database.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "colindex"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) redisKey(key RowKey) string {
	return r.prefix + ":" + string(key)
}

func (r *Redis) Insert(ctx context.Context, mutations []Mutation, _ Consistency) error {
	pipe := r.client.TxPipeline()
	for _, mut := range mutations {
		key := r.redisKey(mut.Key)
		if mut.RowTombstone {
			pipe.Del(ctx, key)
			continue
		}
		sets := make(map[string]interface{})
		var dels []string
		for _, op := range mut.Ops {
			if op.Tombstone {
				dels = append(dels, op.Name)
			} else {
				sets[op.Name] = op.Value
			}
		}
		if len(sets) > 0 {
			pipe.HSet(ctx, key, sets)
		}
		if len(dels) > 0 {
			pipe.HDel(ctx, key, dels...)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis pipeline: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *Redis) Read(ctx context.Context, key RowKey, filter ColumnFilter, _ Consistency) ([]Column, error) {
	redisKey := r.redisKey(key)
	var cols []Column
	if len(filter.Names) > 0 {
		values, err := r.client.HMGet(ctx, redisKey, filter.Names...)
		if err != nil {
			return nil, fmt.Errorf("%w: redis hmget: %v", apperrors.ErrStoreUnavailable, err)
		}
		for i, v := range values {
			if v == nil {
				continue
			}
			s, ok := v.(string)
			if !ok {
				continue
			}
			cols = append(cols, Column{Name: filter.Names[i], Value: []byte(s)})
		}
	} else {
		fields, err := r.client.HGetAll(ctx, redisKey)
		if err != nil {
			return nil, fmt.Errorf("%w: redis hgetall: %v", apperrors.ErrStoreUnavailable, err)
		}
		for name, value := range fields {
			cols = append(cols, Column{Name: name, Value: []byte(value)})
		}
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
	return cols, nil
}
