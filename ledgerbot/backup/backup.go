package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/ledgerbot/logger"
	"golang.org/x/sync/errgroup"
)

var ErrNotFound = errors.New("snapshot not found")

// Sink is a place snapshots are written to and read back from.
type Sink interface {
	Name() string
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

// Service exports and imports full ledger snapshots.
type Service struct {
	store ledger.Snapshotter
	sinks []Sink
	log   *slog.Logger
}

func New(store ledger.Snapshotter, log *slog.Logger, sinks ...Sink) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, sinks: sinks, log: log}
}

// FileName is the object name used for a snapshot taken at t.
func FileName(t time.Time) string {
	return "ledgerbot-" + t.UTC().Format("20060102-150405") + ".json"
}

func Encode(snap *ledger.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func Decode(data []byte) (*ledger.Snapshot, error) {
	var snap ledger.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version != ledger.SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return &snap, nil
}

// Export dumps the store and writes the snapshot to every sink at once.
func (s *Service) Export(ctx context.Context, now time.Time) (string, *ledger.Snapshot, error) {
	if len(s.sinks) == 0 {
		return "", nil, errors.New("no backup destination configured")
	}

	start := time.Now()
	snap, err := s.store.Dump(ctx)
	logger.LogQuery("snapshot.dump", time.Since(start), err)
	if err != nil {
		return "", nil, fmt.Errorf("failed to dump ledger: %w", err)
	}
	snap.Version = ledger.SnapshotVersion
	snap.CreatedAt = now

	data, err := Encode(snap)
	if err != nil {
		return "", nil, err
	}

	name := FileName(now)
	g, gctx := errgroup.WithContext(ctx)
	for _, sink := range s.sinks {
		g.Go(func() error {
			if err := sink.Put(gctx, name, data); err != nil {
				return fmt.Errorf("%s: %w", sink.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	s.log.Info("Snapshot exported",
		slog.String("type", "sys"),
		slog.String("name", name),
		slog.Int("progressions", len(snap.Progressions)),
		slog.Int("accounts", len(snap.Accounts)),
		slog.Int("transactions", len(snap.Transactions)),
		slog.Int("bytes", len(data)),
		slog.Duration("took", time.Since(start)),
	)
	return name, snap, nil
}

// Import replaces the store contents with the named snapshot, reading it
// from the first sink that has it.
func (s *Service) Import(ctx context.Context, name string) (*ledger.Snapshot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrNotFound)
	}

	var data []byte
	var errs []error
	for _, sink := range s.sinks {
		b, err := sink.Get(ctx, name)
		if err == nil {
			data = b
			break
		}
		errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
	}
	if data == nil {
		return nil, errors.Join(append([]error{fmt.Errorf("%w: %s", ErrNotFound, name)}, errs...)...)
	}

	snap, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := s.Restore(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Service) Restore(ctx context.Context, snap *ledger.Snapshot) error {
	start := time.Now()
	err := s.store.Restore(ctx, snap)
	logger.LogQuery("snapshot.restore", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	s.log.Info("Snapshot imported",
		slog.String("type", "sys"),
		slog.Int("progressions", len(snap.Progressions)),
		slog.Int("accounts", len(snap.Accounts)),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}
