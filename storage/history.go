package storage

import (
	"strings"

	"github.com/saiset-co/sai-freshness/types"
)

const (
	historyKey   = types.NamespaceSettings + "location_history"
	favoritesKey = types.NamespaceSettings + "favorite_locations"

	maxHistoryEntries = 20
)

// Location identifies a place the user has looked up. Name+Country is the
// dedup key for both history and favorites.
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l Location) Key() string {
	return strings.ToLower(l.Name) + "|" + strings.ToLower(l.Country)
}

// LocationHistory keeps a bounded, newest-first ring of visited locations
// plus a favorites set, both persisted in the settings namespace so quota
// eviction never touches them.
type LocationHistory struct {
	store types.StorageManager
}

func NewLocationHistory(store types.StorageManager) *LocationHistory {
	return &LocationHistory{store: store}
}

func (h *LocationHistory) Add(location Location) error {
	history := h.Recent()

	deduped := make([]Location, 0, len(history)+1)
	deduped = append(deduped, location)
	for _, existing := range history {
		if existing.Key() != location.Key() {
			deduped = append(deduped, existing)
		}
	}

	if len(deduped) > maxHistoryEntries {
		deduped = deduped[:maxHistoryEntries]
	}

	return h.store.Set(historyKey, deduped, 0)
}

func (h *LocationHistory) Recent() []Location {
	var history []Location
	h.store.Get(historyKey, &history)
	return history
}

func (h *LocationHistory) ClearHistory() error {
	return h.store.Remove(historyKey)
}

func (h *LocationHistory) AddFavorite(location Location) error {
	favorites := h.Favorites()

	for _, existing := range favorites {
		if existing.Key() == location.Key() {
			return nil
		}
	}

	favorites = append(favorites, location)
	return h.store.Set(favoritesKey, favorites, 0)
}

func (h *LocationHistory) RemoveFavorite(location Location) error {
	favorites := h.Favorites()

	kept := favorites[:0]
	for _, existing := range favorites {
		if existing.Key() != location.Key() {
			kept = append(kept, existing)
		}
	}

	return h.store.Set(favoritesKey, kept, 0)
}

func (h *LocationHistory) Favorites() []Location {
	var favorites []Location
	h.store.Get(favoritesKey, &favorites)
	return favorites
}

func (h *LocationHistory) IsFavorite(location Location) bool {
	for _, existing := range h.Favorites() {
		if existing.Key() == location.Key() {
			return true
		}
	}
	return false
}
