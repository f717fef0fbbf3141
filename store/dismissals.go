package store

import (
	"encoding/json"
	"log"
	"sort"
)

// DismissedKey is the session key holding the dismissed showing ids.
const DismissedKey = "dismissedMovies"

// DismissalStore persists the set of dismissed showings of one session.
// Storage failures are logged and never surfaced: a broken store behaves
// like an empty one.
type DismissalStore struct {
	kv KeyValue
}

func NewDismissalStore(kv KeyValue) *DismissalStore {
	if kv == nil {
		kv = NewMemoryKV()
	}
	return &DismissalStore{kv: kv}
}

func (d *DismissalStore) Load() map[string]bool {
	raw, ok, err := d.kv.Get(DismissedKey)
	if err != nil {
		log.Printf("[store] load dismissed: %v", err)
		return map[string]bool{}
	}
	return decodeDismissed(raw, ok)
}

func (d *DismissalStore) Save(set map[string]bool) {
	payload, err := encodeDismissed(set)
	if err != nil {
		log.Printf("[store] encode dismissed: %v", err)
		return
	}
	if err := d.kv.Set(DismissedKey, payload); err != nil {
		log.Printf("[store] save dismissed: %v", err)
	}
}

// Dismiss adds id to the stored set and returns the set after the change.
// The read and the write happen under one Update, so concurrent dismissals
// of a session all land.
func (d *DismissalStore) Dismiss(id string) map[string]bool {
	var set map[string]bool
	err := d.kv.Update(DismissedKey, func(raw string, ok bool) (string, error) {
		set = decodeDismissed(raw, ok)
		if id != "" {
			set[id] = true
		}
		return encodeDismissed(set)
	})
	if err != nil {
		log.Printf("[store] dismiss %s: %v", id, err)
		if set == nil {
			set = map[string]bool{}
		}
		if id != "" {
			set[id] = true
		}
	}
	return set
}

func decodeDismissed(raw string, ok bool) map[string]bool {
	set := map[string]bool{}
	if !ok || raw == "" {
		return set
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		log.Printf("[store] decode dismissed: %v", err)
		return set
	}
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func encodeDismissed(set map[string]bool) (string, error) {
	ids := make([]string, 0, len(set))
	for id, ok := range set {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	payload, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (d *DismissalStore) Clear() {
	if err := d.kv.Delete(DismissedKey); err != nil {
		log.Printf("[store] clear dismissed: %v", err)
	}
}
