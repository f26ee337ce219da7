package ports

// Storage persists built dictionaries to durable storage.
// The backing store (bbolt) keeps one namespace per dictionary name.
// Concurrent reads are safe; writes are serialized by the adapter.
//
// Crash safety: SaveDictionary must be transactional. A crash mid-write
// must not corrupt a previously committed dictionary.
type Storage interface {
	// SaveDictionary persists a built dictionary, replacing any prior
	// dictionary with the same name.
	SaveDictionary(d *StoredDictionary) error

	// LoadDictionary retrieves a dictionary by name.
	// Returns nil, nil if no dictionary exists under that name.
	LoadDictionary(name string) (*StoredDictionary, error)

	// DeleteDictionary removes a dictionary.
	// Idempotent: deleting a nonexistent dictionary is not an error.
	DeleteDictionary(name string) error

	// ListDictionaries returns the metadata of every stored dictionary,
	// sorted by name.
	ListDictionaries() ([]DictionaryMeta, error)
}

// StoredDictionary is the serialized form of a built dictionary.
//
// Vocab and Phrases are FST images. Postings[i] is the serialized record
// set of phrase ordinal i; RecordIDs[j] is the external id of record ordinal j.
type StoredDictionary struct {
	Meta      DictionaryMeta
	Vocab     []byte
	Phrases   []byte
	Postings  [][]byte
	RecordIDs []string
}
