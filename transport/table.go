package transport

import (
	"context"
	"sort"
	"time"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/jrife/kestrel/mutate"
	"github.com/jrife/kestrel/rowkey"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ Transport = (*FakeTable)(nil)

// FakeTable is an in-memory Transport with real table
// semantics: mutations are applied to a sorted row map
// and reads stream the stored cells back out in key
// order, optionally split into small chunks. It backs
// end-to-end tests without a server.
//
// FakeTable is not safe for concurrent use.
type FakeTable struct {
	rows *treemap.Map

	// ChunkSize splits each cell value into fragments of
	// at most this many bytes. Zero serves whole values.
	ChunkSize int

	// Clock assigns timestamps to server-time mutations.
	Clock func() mutate.Timestamp

	failRemaining int
	failCode      codes.Code
	failArmed     bool
}

type fakeCell struct {
	timestamp mutate.Timestamp
	value     []byte
	labels    []string
}

// families → qualifiers → cells ordered newest first
type fakeRow map[string]map[string][]fakeCell

// NewFakeTable creates an empty table.
func NewFakeTable() *FakeTable {
	return &FakeTable{
		rows: treemap.NewWithStringComparator(),
		Clock: func() mutate.Timestamp {
			return mutate.Timestamp(time.Now().UnixNano() / 1000)
		},
	}
}

// FailAfterChunks arms a one-shot fault: the next read
// stream fails with code after serving n chunks.
func (table *FakeTable) FailAfterChunks(n int, code codes.Code) {
	table.failRemaining = n
	table.failCode = code
	table.failArmed = true
}

// MutateRows implements mutate.MutateRowsCaller.MutateRows
func (table *FakeTable) MutateRows(ctx context.Context, entries []mutate.Entry) ([]mutate.EntryResult, error) {
	results := make([]mutate.EntryResult, len(entries))

	for i, entry := range entries {
		table.apply(entry)
		results[i] = Result(i, codes.OK, "")
	}

	return results, nil
}

func (table *FakeTable) apply(entry mutate.Entry) {
	key := string(entry.RowKey)

	for _, m := range entry.Mutations {
		switch m.Kind() {
		case mutate.KindSetCell:
			timestamp := m.Timestamp()

			if timestamp == mutate.ServerTime {
				timestamp = table.Clock()
			}

			table.setCell(key, m.Family(), string(m.Qualifier()), fakeCell{
				timestamp: timestamp,
				value:     m.Value(),
			})
		case mutate.KindDeleteFromColumn:
			table.deleteColumn(key, m.Family(), string(m.Qualifier()), m.TimeRange())
		case mutate.KindDeleteFromFamily:
			if row, ok := table.row(key); ok {
				delete(row, m.Family())
			}
		case mutate.KindDeleteRow:
			table.rows.Remove(key)
		}
	}
}

func (table *FakeTable) row(key string) (fakeRow, bool) {
	value, ok := table.rows.Get(key)

	if !ok {
		return nil, false
	}

	return value.(fakeRow), true
}

func (table *FakeTable) setCell(key, family, qualifier string, cell fakeCell) {
	row, ok := table.row(key)

	if !ok {
		row = fakeRow{}
		table.rows.Put(key, row)
	}

	if row[family] == nil {
		row[family] = map[string][]fakeCell{}
	}

	cells := row[family][qualifier]

	for i, existing := range cells {
		if existing.timestamp == cell.timestamp {
			cells[i] = cell

			return
		}
	}

	cells = append(cells, cell)

	sort.Slice(cells, func(i, j int) bool {
		return cells[i].timestamp > cells[j].timestamp
	})

	row[family][qualifier] = cells
}

func (table *FakeTable) deleteColumn(key, family, qualifier string, timeRange mutate.TimestampRange) {
	row, ok := table.row(key)

	if !ok || row[family] == nil {
		return
	}

	var kept []fakeCell

	for _, cell := range row[family][qualifier] {
		if cell.timestamp >= timeRange.Start && (timeRange.End == 0 || cell.timestamp < timeRange.End) {
			continue
		}

		kept = append(kept, cell)
	}

	if len(kept) == 0 {
		delete(row[family], qualifier)
	} else {
		row[family][qualifier] = kept
	}
}

// ReadRows implements Transport.ReadRows
func (table *FakeTable) ReadRows(ctx context.Context, set rowkey.Set, filter Filter) (ChunkStream, error) {
	chunks := table.chunks(set)
	stream := &sliceChunkStream{chunks: chunks}

	if table.failArmed {
		if table.failRemaining < len(chunks) {
			stream.chunks = chunks[:table.failRemaining]
		}

		stream.err = status.Error(table.failCode, "injected stream failure")
		table.failArmed = false
	}

	return stream, nil
}

// chunks serializes every requested row into the chunk
// sequence a server would stream. A set with no keys and
// no ranges requests all rows.
func (table *FakeTable) chunks(set rowkey.Set) []Chunk {
	all := len(set.Keys) == 0 && len(set.Ranges) == 0

	var chunks []Chunk

	it := table.rows.Iterator()

	for it.Next() {
		key := rowkey.Key(it.Key().(string))

		if !all && !set.Contains(key) {
			continue
		}

		chunks = append(chunks, table.rowChunks(key, it.Value().(fakeRow))...)
	}

	return chunks
}

func (table *FakeTable) rowChunks(key rowkey.Key, row fakeRow) []Chunk {
	var chunks []Chunk

	families := make([]string, 0, len(row))

	for family := range row {
		families = append(families, family)
	}

	sort.Strings(families)

	for _, family := range families {
		qualifiers := make([]string, 0, len(row[family]))

		for qualifier := range row[family] {
			qualifiers = append(qualifiers, qualifier)
		}

		sort.Strings(qualifiers)

		for _, qualifier := range qualifiers {
			for _, cell := range row[family][qualifier] {
				chunks = append(chunks, table.cellChunks(key, family, qualifier, cell)...)
			}
		}
	}

	if len(chunks) > 0 {
		chunks[len(chunks)-1].CommitRow = true
	}

	return chunks
}

func (table *FakeTable) cellChunks(key rowkey.Key, family, qualifier string, cell fakeCell) []Chunk {
	qualifierBytes := []byte(qualifier)

	first := Chunk{
		RowKey:    key,
		Family:    &family,
		Qualifier: &qualifierBytes,
		Timestamp: cell.timestamp,
		Labels:    cell.labels,
	}

	if table.ChunkSize <= 0 || len(cell.value) <= table.ChunkSize {
		first.Value = cell.value

		return []Chunk{first}
	}

	first.Value = cell.value[:table.ChunkSize]
	first.ValueSize = len(cell.value)
	chunks := []Chunk{first}

	for offset := table.ChunkSize; offset < len(cell.value); offset += table.ChunkSize {
		end := offset + table.ChunkSize
		valueSize := len(cell.value)

		if end >= len(cell.value) {
			end = len(cell.value)
			valueSize = 0
		}

		chunks = append(chunks, Chunk{
			RowKey:    key,
			Timestamp: cell.timestamp,
			Value:     cell.value[offset:end],
			ValueSize: valueSize,
		})
	}

	return chunks
}
