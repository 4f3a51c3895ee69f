package ecs

import (
	"sort"
	"strings"
	"sync"
)

// signatureOf derives the canonical Signature for a component-type set: the
// tags sorted lexicographically and joined with '|'.
func signatureOf(types []ComponentType) Signature {
	if len(types) == 0 {
		return ""
	}
	tags := make([]string, len(types))
	for i, t := range types {
		tags[i] = string(t)
	}
	sort.Strings(tags)
	return Signature(strings.Join(tags, "|"))
}

// ArchetypeIndex maps entity -> component-set signature and signature ->
// entity set, kept consistent through every structural mutation. It never
// retains a signature bucket whose entity set is empty.
type ArchetypeIndex struct {
	mutex     sync.RWMutex
	entitySig map[EntityID]Signature
	buckets   map[Signature]map[EntityID]struct{}
}

// NewArchetypeIndex creates an empty index.
func NewArchetypeIndex() *ArchetypeIndex {
	return &ArchetypeIndex{
		entitySig: make(map[EntityID]Signature),
		buckets:   make(map[Signature]map[EntityID]struct{}),
	}
}

// Set (re)places e's component-type set, updating its bucket membership.
// An empty types set removes e from the index entirely.
func (a *ArchetypeIndex) Set(e EntityID, types []ComponentType) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	newSig := signatureOf(types)

	if oldSig, had := a.entitySig[e]; had {
		if oldSig == newSig {
			return
		}
		a.removeFromBucket(oldSig, e)
		delete(a.entitySig, e)
	}

	if newSig == "" {
		return
	}

	bucket, ok := a.buckets[newSig]
	if !ok {
		bucket = make(map[EntityID]struct{})
		a.buckets[newSig] = bucket
	}
	bucket[e] = struct{}{}
	a.entitySig[e] = newSig
}

// Remove drops e from the index entirely, equivalent to Set(e, nil).
func (a *ArchetypeIndex) Remove(e EntityID) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	sig, ok := a.entitySig[e]
	if !ok {
		return
	}
	a.removeFromBucket(sig, e)
	delete(a.entitySig, e)
}

// removeFromBucket removes e from sig's bucket and prunes the bucket if it
// becomes empty. Caller must hold mutex.
func (a *ArchetypeIndex) removeFromBucket(sig Signature, e EntityID) {
	bucket, ok := a.buckets[sig]
	if !ok {
		return
	}
	delete(bucket, e)
	if len(bucket) == 0 {
		delete(a.buckets, sig)
	}
}

// SignatureOf returns e's current signature and whether e has an entry.
func (a *ArchetypeIndex) SignatureOf(e EntityID) (Signature, bool) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	sig, ok := a.entitySig[e]
	return sig, ok
}

// EntitiesMatching returns every entity whose signature is a superset of
// required. An empty required set returns an empty list by definition.
func (a *ArchetypeIndex) EntitiesMatching(required []ComponentType) []EntityID {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	out := make([]EntityID, 0)
	if len(required) == 0 {
		return out
	}

	for sig, bucket := range a.buckets {
		if !signatureContainsAll(sig, required) {
			continue
		}
		for e := range bucket {
			out = append(out, e)
		}
	}
	return out
}

func signatureContainsAll(sig Signature, required []ComponentType) bool {
	tags := make(map[string]struct{})
	for _, tag := range strings.Split(string(sig), "|") {
		tags[tag] = struct{}{}
	}
	for _, t := range required {
		if _, ok := tags[string(t)]; !ok {
			return false
		}
	}
	return true
}

// SignatureCount pairs a Signature with the number of entities currently in
// its bucket, returned by Stats.
type SignatureCount struct {
	Signature Signature
	Count     int
}

// Stats returns, for every non-empty bucket, its signature and entity count.
func (a *ArchetypeIndex) Stats() []SignatureCount {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	out := make([]SignatureCount, 0, len(a.buckets))
	for sig, bucket := range a.buckets {
		out = append(out, SignatureCount{Signature: sig, Count: len(bucket)})
	}
	return out
}
