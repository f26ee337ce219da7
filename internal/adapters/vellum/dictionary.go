// Package vellum implements ports.Dictionary with two vellum FSTs: one maps
// words to word ids, the other maps word id sequences (4 big-endian bytes per
// word) to phrase ordinals. Each phrase ordinal owns a roaring bitmap of the
// records that carry the phrase.
package vellum

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	fst "github.com/blevesearch/vellum"
	"github.com/corey/tagger/internal/domain/corpus"
	"github.com/corey/tagger/internal/ports"
)

const wordBytes = 4

// Dictionary is an immutable compiled dictionary. It is safe for concurrent
// use; Filtered views share the compiled automata.
type Dictionary struct {
	meta      ports.DictionaryMeta
	vocabData []byte
	fstData   []byte
	vocab     *fst.FST
	phrases   *fst.FST
	postings  []*roaring.Bitmap
	recordIDs []string
	ordinals  map[string][]uint32

	filter *roaring.Bitmap // nil: every record visible
}

// Compile builds the automata for c.
func Compile(c *corpus.Corpus, meta ports.DictionaryMeta) (*Dictionary, error) {
	var vocabBuf bytes.Buffer
	vb, err := fst.New(&vocabBuf, nil)
	if err != nil {
		return nil, fmt.Errorf("vocabulary builder: %w", err)
	}
	for i, w := range c.Words {
		if err := vb.Insert([]byte(w), uint64(i)); err != nil {
			return nil, fmt.Errorf("vocabulary insert %q: %w", w, err)
		}
	}
	if err := vb.Close(); err != nil {
		return nil, fmt.Errorf("vocabulary close: %w", err)
	}

	var phraseBuf bytes.Buffer
	pb, err := fst.New(&phraseBuf, nil)
	if err != nil {
		return nil, fmt.Errorf("phrase builder: %w", err)
	}
	postings := make([]*roaring.Bitmap, len(c.Phrases))
	for i, p := range c.Phrases {
		if err := pb.Insert(phraseKey(p.Words), uint64(i)); err != nil {
			return nil, fmt.Errorf("phrase insert: %w", err)
		}
		postings[i] = p.Records
	}
	if err := pb.Close(); err != nil {
		return nil, fmt.Errorf("phrase close: %w", err)
	}

	meta.Records = len(c.RecordIDs)
	meta.Words = len(c.Words)
	meta.Phrases = len(c.Phrases)
	meta.Skipped = c.Skipped
	return open(meta, vocabBuf.Bytes(), phraseBuf.Bytes(), postings, c.RecordIDs)
}

func phraseKey(words []ports.WordID) []byte {
	key := make([]byte, 0, len(words)*wordBytes)
	for _, w := range words {
		key = binary.BigEndian.AppendUint32(key, uint32(w))
	}
	return key
}

func open(meta ports.DictionaryMeta, vocabData, fstData []byte, postings []*roaring.Bitmap, recordIDs []string) (*Dictionary, error) {
	vocab, err := fst.Load(vocabData)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	phrases, err := fst.Load(fstData)
	if err != nil {
		return nil, fmt.Errorf("load phrases: %w", err)
	}
	ordinals := make(map[string][]uint32, len(recordIDs))
	for i, id := range recordIDs {
		ordinals[id] = append(ordinals[id], uint32(i))
	}
	return &Dictionary{
		meta:      meta,
		vocabData: vocabData,
		fstData:   fstData,
		vocab:     vocab,
		phrases:   phrases,
		postings:  postings,
		recordIDs: recordIDs,
		ordinals:  ordinals,
	}, nil
}

// Meta describes the dictionary.
func (d *Dictionary) Meta() ports.DictionaryMeta { return d.meta }

// LookupWord implements ports.Vocabulary.
func (d *Dictionary) LookupWord(word []byte) (ports.WordID, bool) {
	v, ok, err := d.vocab.Get(word)
	if err != nil || !ok {
		return ports.UnknownWord, false
	}
	return ports.WordID(v), true
}

// Start implements ports.PhraseAutomaton.
func (d *Dictionary) Start() ports.PhraseState {
	return ports.PhraseState{Node: d.phrases.Start()}
}

// Step implements ports.PhraseAutomaton. One word is four byte transitions.
func (d *Dictionary) Step(s ports.PhraseState, word ports.WordID) (ports.PhraseState, bool) {
	var key [wordBytes]byte
	binary.BigEndian.PutUint32(key[:], uint32(word))

	addr, acc := s.Node, s.Acc
	for _, b := range key {
		next, out := d.phrases.AcceptWithVal(addr, b)
		if !d.phrases.CanMatch(next) {
			return s, false
		}
		addr, acc = next, acc+out
	}
	return ports.PhraseState{Node: addr, Acc: acc}, true
}

// Payload implements ports.PhraseAutomaton. Under a filter, a phrase none of
// whose records pass is not a hit.
func (d *Dictionary) Payload(s ports.PhraseState) (uint64, bool) {
	ok, final := d.phrases.IsMatchWithVal(s.Node)
	if !ok {
		return 0, false
	}
	v := s.Acc + final
	if d.filter != nil && !d.postings[v].Intersects(d.filter) {
		return 0, false
	}
	return v, true
}

// Resolve implements ports.Resolver: the ids of the records carrying the
// phrase, in record order.
func (d *Dictionary) Resolve(value uint64) []string {
	return d.resolve(d.Records(value))
}

// Records returns the record ordinals carrying the phrase, filtered.
func (d *Dictionary) Records(value uint64) *roaring.Bitmap {
	if value >= uint64(len(d.postings)) {
		return roaring.New()
	}
	if d.filter == nil {
		return d.postings[value]
	}
	return roaring.And(d.postings[value], d.filter)
}

// RecordIDs maps a set of record ordinals to ids, in ordinal order.
func (d *Dictionary) RecordIDs(ords *roaring.Bitmap) []string {
	return d.resolve(ords)
}

func (d *Dictionary) resolve(ords *roaring.Bitmap) []string {
	ids := make([]string, 0, ords.GetCardinality())
	it := ords.Iterator()
	for it.HasNext() {
		ids = append(ids, d.recordIDs[it.Next()])
	}
	return ids
}

// Filtered returns a view of d in which only the records with the given
// ids exist. Unknown ids are ignored.
func (d *Dictionary) Filtered(ids []string) *Dictionary {
	filter := roaring.New()
	for _, id := range ids {
		filter.AddMany(d.ordinals[id])
	}
	if d.filter != nil {
		filter.And(d.filter)
	}
	view := *d
	view.filter = filter
	return &view
}

// Words returns the vocabulary indexed by word id.
func (d *Dictionary) Words() ([]string, error) {
	words := make([]string, d.vocab.Len())
	err := each(d.vocab, func(key []byte, id uint64) error {
		if id >= uint64(len(words)) {
			return fmt.Errorf("word id %d out of range", id)
		}
		words[id] = string(key)
		return nil
	})
	return words, err
}

// Phrases returns every phrase as its words, indexed by phrase value.
// Filters do not apply.
func (d *Dictionary) Phrases() ([][]string, error) {
	words, err := d.Words()
	if err != nil {
		return nil, err
	}
	phrases := make([][]string, len(d.postings))
	err = each(d.phrases, func(key []byte, v uint64) error {
		if len(key)%wordBytes != 0 || v >= uint64(len(phrases)) {
			return fmt.Errorf("corrupt phrase key %x", key)
		}
		p := make([]string, 0, len(key)/wordBytes)
		for i := 0; i < len(key); i += wordBytes {
			id := binary.BigEndian.Uint32(key[i:])
			if id >= uint32(len(words)) {
				return fmt.Errorf("phrase word id %d out of range", id)
			}
			p = append(p, words[id])
		}
		phrases[v] = p
		return nil
	})
	return phrases, err
}

// each visits every key of f in order.
func each(f *fst.FST, fn func(key []byte, v uint64) error) error {
	itr, err := f.Iterator(nil, nil)
	for err == nil {
		key, v := itr.Current()
		if err := fn(key, v); err != nil {
			return err
		}
		err = itr.Next()
	}
	if errors.Is(err, fst.ErrIteratorDone) {
		return nil
	}
	return err
}

// Marshal returns the persistable form of d. Filters are not persisted.
func (d *Dictionary) Marshal() (*ports.StoredDictionary, error) {
	postings := make([][]byte, len(d.postings))
	for i, bm := range d.postings {
		data, err := bm.ToBytes()
		if err != nil {
			return nil, fmt.Errorf("postings %d: %w", i, err)
		}
		postings[i] = data
	}
	return &ports.StoredDictionary{
		Meta:      d.meta,
		Vocab:     d.vocabData,
		Phrases:   d.fstData,
		Postings:  postings,
		RecordIDs: d.recordIDs,
	}, nil
}

// Load reopens a dictionary saved with Marshal.
func Load(sd *ports.StoredDictionary) (*Dictionary, error) {
	postings := make([]*roaring.Bitmap, len(sd.Postings))
	for i, data := range sd.Postings {
		bm := roaring.New()
		if err := bm.UnmarshalBinary(data); err != nil {
			return nil, fmt.Errorf("postings %d: %w", i, err)
		}
		postings[i] = bm
	}
	return open(sd.Meta, sd.Vocab, sd.Phrases, postings, sd.RecordIDs)
}

// Close releases the automata.
func (d *Dictionary) Close() error {
	if err := d.vocab.Close(); err != nil {
		return err
	}
	return d.phrases.Close()
}
