package read

import (
	"fmt"

	"github.com/jrife/kestrel/rowkey"
	"github.com/jrife/kestrel/transport"
)

// chunkMerger reconstructs whole rows from the partial
// chunks of one read stream. Family and qualifier carry
// over from chunk to chunk within a row; a cell whose
// chunk announced a nonzero ValueSize stays open and
// collects value fragments from continuation chunks until
// one arrives with ValueSize zero. A server-signaled
// commit boundary closes the row.
//
// Malformed chunk sequences are protocol violations and
// surface as permanent errors.
type chunkMerger struct {
	row           Row
	open          *Cell
	family        string
	haveFamily    bool
	qualifier     []byte
	haveQualifier bool
	lastCommitted rowkey.Key
}

// reset discards the partially-received row, if any.
// The last committed key is retained so a resumed stream
// can still be validated against it.
func (merger *chunkMerger) reset() {
	merger.row = Row{}
	merger.open = nil
	merger.haveFamily = false
	merger.haveQualifier = false
}

// partial returns true while a row has been started but
// not yet committed.
func (merger *chunkMerger) partial() bool {
	return merger.row.Key != nil || merger.open != nil
}

// consume folds one chunk into the row under construction
// and returns the completed row when the chunk carried a
// commit boundary.
func (merger *chunkMerger) consume(chunk transport.Chunk) (Row, bool, error) {
	if chunk.ResetRow {
		merger.reset()

		return Row{}, false, nil
	}

	if merger.open != nil {
		return merger.continueCell(chunk)
	}

	if err := merger.startCell(chunk); err != nil {
		return Row{}, false, err
	}

	if chunk.CommitRow {
		if merger.open != nil {
			return Row{}, false, fmt.Errorf("protocol violation: commit boundary while cell value incomplete for row %s", merger.row.Key)
		}

		return merger.commit(), true, nil
	}

	return Row{}, false, nil
}

// continueCell appends a value fragment to the open cell.
func (merger *chunkMerger) continueCell(chunk transport.Chunk) (Row, bool, error) {
	if chunk.RowKey != nil && rowkey.Compare(chunk.RowKey, merger.row.Key) != 0 {
		return Row{}, false, fmt.Errorf("protocol violation: row key changed from %s to %s mid-cell", merger.row.Key, chunk.RowKey)
	}

	if chunk.Family != nil || chunk.Qualifier != nil {
		return Row{}, false, fmt.Errorf("protocol violation: new column started while cell value incomplete for row %s", merger.row.Key)
	}

	merger.open.appendFragment(chunk.Value)

	if chunk.ValueSize == 0 {
		merger.row.Cells = append(merger.row.Cells, *merger.open)
		merger.open = nil
	}

	if chunk.CommitRow {
		if merger.open != nil {
			return Row{}, false, fmt.Errorf("protocol violation: commit boundary while cell value incomplete for row %s", merger.row.Key)
		}

		return merger.commit(), true, nil
	}

	return Row{}, false, nil
}

// startCell begins a new cell, starting a new row if none
// is in progress.
func (merger *chunkMerger) startCell(chunk transport.Chunk) error {
	if merger.row.Key == nil {
		if chunk.RowKey == nil {
			return fmt.Errorf("protocol violation: chunk carries no row key")
		}

		if merger.lastCommitted != nil && rowkey.Compare(chunk.RowKey, merger.lastCommitted) <= 0 {
			return fmt.Errorf("protocol violation: row key moved backwards from %s to %s", merger.lastCommitted, chunk.RowKey)
		}

		merger.row.Key = chunk.RowKey.Clone()
	} else if chunk.RowKey != nil && rowkey.Compare(chunk.RowKey, merger.row.Key) != 0 {
		return fmt.Errorf("protocol violation: row key changed from %s to %s before commit", merger.row.Key, chunk.RowKey)
	}

	if chunk.Family != nil {
		merger.family = *chunk.Family
		merger.haveFamily = true
		// a new family resets the qualifier carry-over
		merger.haveQualifier = false
	}

	if chunk.Qualifier != nil {
		merger.qualifier = *chunk.Qualifier
		merger.haveQualifier = true
	}

	if !merger.haveFamily || !merger.haveQualifier {
		return fmt.Errorf("protocol violation: cell for row %s carries no column", merger.row.Key)
	}

	cell := Cell{
		RowKey:    merger.row.Key,
		Family:    merger.family,
		Qualifier: merger.qualifier,
		Timestamp: chunk.Timestamp,
		Labels:    chunk.Labels,
	}

	cell.appendFragment(chunk.Value)

	if chunk.ValueSize > 0 {
		merger.open = &cell

		return nil
	}

	merger.row.Cells = append(merger.row.Cells, cell)

	return nil
}

// commit finishes the row under construction.
func (merger *chunkMerger) commit() Row {
	row := merger.row
	merger.lastCommitted = row.Key
	merger.reset()

	return row
}
