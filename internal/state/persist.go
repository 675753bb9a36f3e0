package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

// envelopeVersion matches the persisted format written by the browser canvas, so
// an exported local-storage entry can be loaded as is.
const envelopeVersion = 0

type envelope struct {
	State   Snapshot `json:"state"`
	Version int      `json:"version"`
}

func encodeSnapshot(snap Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(envelope{State: snap, Version: envelopeVersion}); err != nil {
		return nil, fmt.Errorf("marshal canvas store: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Snapshot{}, fmt.Errorf("parse canvas store: %w", err)
	}
	return env.State, nil
}

// FilePersister keeps the snapshot in <dir>/<name>.json.
type FilePersister struct {
	dir  string
	name string
}

func NewFilePersister(dir, name string) *FilePersister {
	if name == "" {
		name = StoreName
	}
	return &FilePersister{dir: dir, name: name}
}

func (p *FilePersister) Path() string {
	return filepath.Join(p.dir, p.name+".json")
}

func (p *FilePersister) Load(ctx context.Context) (Snapshot, bool, error) {
	data, err := os.ReadFile(p.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("read canvas store: %w", err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// Save writes atomically (tmp + rename).
func (p *FilePersister) Save(ctx context.Context, snap Snapshot) error {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return err
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	path := p.Path()
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write canvas store: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write canvas store: %w", err)
	}
	return nil
}

// RedisPersister keeps the snapshot under a single key.
type RedisPersister struct {
	client *redis.Client
	key    string
}

func NewRedisPersister(client *redis.Client, key string) *RedisPersister {
	if key == "" {
		key = StoreName
	}
	return &RedisPersister{client: client, key: key}
}

// DialRedis connects and pings, failing fast when the server is unreachable.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (p *RedisPersister) Load(ctx context.Context) (Snapshot, bool, error) {
	data, err := p.client.Get(ctx, p.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("read canvas store: %w", err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func (p *RedisPersister) Save(ctx context.Context, snap Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := p.client.Set(ctx, p.key, data, 0).Err(); err != nil {
		return fmt.Errorf("write canvas store: %w", err)
	}
	return nil
}
