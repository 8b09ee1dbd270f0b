package badger

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes for different data types
const (
	indexEntryPrefix = "idxent"
	paramsPrefix     = "params"
	runRecordPrefix  = "runrec"
	runRecordIDSeq   = "runrecseq"
)

// makeCollectionPrefix generates the prefix shared by every entry of a collection.
// Format: prefix:collection:
func makeCollectionPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", indexEntryPrefix, collection))
}

// makeIndexEntryKey generates a key for an index entry by ID.
// Format: prefix:collection:documentID#section#seq
//
// Entry IDs start with the document ID and a '#', and document IDs never
// contain '#', so the entries of one document share a key prefix and the key
// space doubles as the per-document index.
func makeIndexEntryKey(collection, id string) []byte {
	return append(makeCollectionPrefix(collection), id...)
}

// makeDocumentPrefix generates the prefix shared by every entry of a document.
func makeDocumentPrefix(collection, documentID string) []byte {
	key := append(makeCollectionPrefix(collection), documentID...)
	return append(key, '#')
}

// makeParamsKey generates a key for the chunking parameters pinned to a collection.
func makeParamsKey(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s", paramsPrefix, collection))
}

// makeRunRecordKey generates a key for a run record by sequence number.
// Format: prefix:seq, BigEndian so lexicographic order is insertion order.
func makeRunRecordKey(seq uint64) []byte {
	prefix := []byte(runRecordPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}
