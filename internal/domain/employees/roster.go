package employees

import "context"

// Deleter removes one record by identity.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// Roster is the list a dashboard renders. It is updated in place after a
// delete instead of being fetched again.
type Roster struct {
	Entries []Record
}

func NewRoster(entries []Record) Roster {
	out := make([]Record, len(entries))
	copy(out, entries)
	return Roster{Entries: out}
}

func (r Roster) Len() int {
	return len(r.Entries)
}

func (r Roster) Find(id string) (Record, bool) {
	for _, entry := range r.Entries {
		if entry.ID == id {
			return entry, true
		}
	}
	return Record{}, false
}

// Without returns a copy of the roster minus the entry with id.
func (r Roster) Without(id string) Roster {
	out := make([]Record, 0, len(r.Entries))
	for _, entry := range r.Entries {
		if entry.ID != id {
			out = append(out, entry)
		}
	}
	return Roster{Entries: out}
}

// Delete asks del to remove id. On success exactly that entry is dropped; on
// failure the roster is returned unchanged with the error.
func (r Roster) Delete(ctx context.Context, del Deleter, id string) (Roster, error) {
	if err := del.Delete(ctx, id); err != nil {
		return r, err
	}
	return r.Without(id), nil
}
