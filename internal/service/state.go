package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"fitrpg-bot/internal/catalog"
	"fitrpg-bot/internal/encounter"
	"fitrpg-bot/internal/model"
	"fitrpg-bot/internal/store"
)

// stateVersion is written into every snapshot.
const stateVersion = 2

// persistedState is the single blob saved through the gateway. Maps are keyed
// by user id and channel id.
type persistedState struct {
	Version int                      `json:"version"`
	Users   map[int64]*model.Player  `json:"users"`
	Hunts   map[int64]encounter.Hunt `json:"hunts"`
	Raids   map[int64]encounter.Raid `json:"raids"`
	Shop    shopState                `json:"shop"`
}

type shopState struct {
	Items []catalog.Item `json:"items,omitempty"`
}

// looseState decodes a blob one entry at a time so a single bad record
// cannot block the rest from loading.
type looseState struct {
	Users map[string]json.RawMessage `json:"users"`
	Hunts map[string]json.RawMessage `json:"hunts"`
	Raids map[string]json.RawMessage `json:"raids"`
	Shop  struct {
		Items []json.RawMessage `json:"items"`
	} `json:"shop"`
}

// Snapshot serialises players, live encounters and catalog overrides.
func (e *Engine) Snapshot() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := persistedState{
		Version: stateVersion,
		Users:   e.players,
		Hunts:   make(map[int64]encounter.Hunt),
		Raids:   make(map[int64]encounter.Raid),
	}
	for _, h := range e.hunts.Snapshot() {
		st.Hunts[h.ChannelID] = h
	}
	for _, r := range e.raids.Snapshot() {
		st.Raids[r.ChannelID] = r
	}
	st.Shop.Items = e.overrides

	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return data, nil
}

// Load replaces the in-memory state with the persisted blob. A missing blob
// starts fresh; malformed entries are skipped with a warning.
func (e *Engine) Load(ctx context.Context) error {
	data, err := e.gateway.Load(ctx)
	if errors.Is(err, store.ErrNoState) {
		log.Info().Msg("No persisted state, starting fresh")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	return e.restore(data)
}

func (e *Engine) restore(data []byte) error {
	var loose looseState
	if err := json.Unmarshal(data, &loose); err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}

	players := make(map[int64]*model.Player, len(loose.Users))
	for key, raw := range loose.Users {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			log.Warn().Str("key", key).Msg("Skipping player with invalid id")
			continue
		}
		p := &model.Player{}
		if err := json.Unmarshal(raw, p); err != nil {
			log.Warn().Err(err).Int64("user_id", id).Msg("Skipping malformed player")
			continue
		}
		p.Normalize()
		players[id] = p
	}

	hunts := make([]encounter.Hunt, 0, len(loose.Hunts))
	for key, raw := range loose.Hunts {
		var h encounter.Hunt
		if err := json.Unmarshal(raw, &h); err != nil {
			log.Warn().Err(err).Str("channel", key).Msg("Skipping malformed hunt")
			continue
		}
		if h.ChannelID == 0 {
			h.ChannelID, _ = strconv.ParseInt(key, 10, 64)
		}
		hunts = append(hunts, h)
	}

	raids := make([]encounter.Raid, 0, len(loose.Raids))
	for key, raw := range loose.Raids {
		var r encounter.Raid
		if err := json.Unmarshal(raw, &r); err != nil {
			log.Warn().Err(err).Str("channel", key).Msg("Skipping malformed raid")
			continue
		}
		if r.ChannelID == 0 {
			r.ChannelID, _ = strconv.ParseInt(key, 10, 64)
		}
		raids = append(raids, r)
	}

	var overrides []catalog.Item
	for _, raw := range loose.Shop.Items {
		var it catalog.Item
		if err := json.Unmarshal(raw, &it); err != nil {
			log.Warn().Err(err).Msg("Skipping malformed catalog item")
			continue
		}
		overrides = append(overrides, it)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.players = players
	e.hunts.Restore(hunts)
	e.raids.Restore(raids)
	if len(overrides) > 0 {
		e.overrides = overrides
		e.catalog = catalog.New(overrides)
		e.rewards.SetCatalog(e.catalog)
	}

	log.Info().
		Int("players", len(players)).
		Int("hunts", len(hunts)).
		Int("raids", len(raids)).
		Int("catalog_overrides", len(overrides)).
		Msg("State loaded")
	return nil
}
