package session

// DefaultHistoryCapacity is the number of executed commands kept per session.
const DefaultHistoryCapacity = 5

// HistoryEntry is one executed command and the output it produced.
type HistoryEntry struct {
	Command string
	Output  string
}

// History is a bounded FIFO of executed commands. Once full, adding an entry
// evicts the oldest one.
type History struct {
	capacity int
	entries  []HistoryEntry
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		capacity: capacity,
		entries:  make([]HistoryEntry, 0, capacity),
	}
}

func (h *History) Add(e HistoryEntry) {
	if len(h.entries) == h.capacity {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, e)
}

func (h *History) Len() int { return len(h.entries) }

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Recent returns up to n of the newest entries, oldest first.
func (h *History) Recent(n int) []HistoryEntry {
	if n <= 0 {
		return nil
	}
	start := len(h.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]HistoryEntry, len(h.entries)-start)
	copy(out, h.entries[start:])
	return out
}
