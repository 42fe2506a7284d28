package state

import (
	"context"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const orderKeyPrefix = "order:"

// OrderSnapshot is the persisted view of one submitted order: the last
// normalized record plus the locally tracked lifecycle state. It lets an
// operator re-attach to resting orders after a restart.
type OrderSnapshot struct {
	ID        string    `msgpack:"id"`
	Symbol    string    `msgpack:"symbol"`
	Type      string    `msgpack:"type"`
	Side      string    `msgpack:"side"`
	Amount    float64   `msgpack:"amount"`
	Price     float64   `msgpack:"price"`
	Segment   string    `msgpack:"segment"`
	State     string    `msgpack:"state"`
	UpdatedAt time.Time `msgpack:"updated_at"`
}

// OrderSnapshots stores msgpack-encoded snapshots keyed by exchange order id.
type OrderSnapshots struct {
	store Store
}

func NewOrderSnapshots(store Store) *OrderSnapshots {
	return &OrderSnapshots{store: store}
}

func (s *OrderSnapshots) Save(ctx context.Context, snap OrderSnapshot) error {
	if s == nil || s.store == nil || snap.ID == "" {
		return nil
	}
	payload, err := msgpack.Marshal(snap)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, orderKeyPrefix+snap.ID, payload)
}

func (s *OrderSnapshots) Load(ctx context.Context, id string) (OrderSnapshot, bool, error) {
	if s == nil || s.store == nil {
		return OrderSnapshot{}, false, nil
	}
	payload, ok, err := s.store.Get(ctx, orderKeyPrefix+id)
	if err != nil || !ok {
		return OrderSnapshot{}, false, err
	}
	var snap OrderSnapshot
	if err := msgpack.Unmarshal(payload, &snap); err != nil {
		return OrderSnapshot{}, false, err
	}
	return snap, true, nil
}

func (s *OrderSnapshots) Delete(ctx context.Context, id string) error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Delete(ctx, orderKeyPrefix+id)
}

// Pending lists the persisted snapshots still in the pending state.
func (s *OrderSnapshots) Pending(ctx context.Context) ([]OrderSnapshot, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	entries, err := s.store.List(ctx, orderKeyPrefix)
	if err != nil {
		return nil, err
	}
	var out []OrderSnapshot
	for key, payload := range entries {
		if !strings.HasPrefix(key, orderKeyPrefix) {
			continue
		}
		var snap OrderSnapshot
		if err := msgpack.Unmarshal(payload, &snap); err != nil {
			continue
		}
		if snap.State == "pending" {
			out = append(out, snap)
		}
	}
	return out, nil
}
