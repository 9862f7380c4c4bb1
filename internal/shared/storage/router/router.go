// Package router maps entity families onto the backing store that holds them.
package router

import (
	"errors"
	"fmt"
	"sort"
)

// Family is the logical group an entity belongs to.
type Family string

const (
	FamilyAuth         Family = "auth"
	FamilyAdmin        Family = "admin"
	FamilyContentTypes Family = "contenttypes"
	FamilySessions     Family = "sessions"
	FamilyUsers        Family = "users"
	FamilyJobs         Family = "jobs"
	FamilyResumes      Family = "resumes"
	FamilyCompanies    Family = "companies"
	FamilyAnalytics    Family = "analytics"
	FamilyArtifacts    Family = "artifacts"
)

// Store tags a configured backing store.
type Store string

const (
	StorePrimary   Store = "primary"
	StoreSecondary Store = "secondary"
	StoreDocument  Store = "document"
)

// Kind says whether a store is relational.
type Kind int

const (
	Relational Kind = iota + 1
	Document
)

// ErrUnknownFamily is returned when a family has no route.
var ErrUnknownFamily = errors.New("unknown entity family")

// DefaultStores lists the stores a deployment provides.
func DefaultStores() map[Store]Kind {
	return map[Store]Kind{
		StorePrimary:   Relational,
		StoreSecondary: Relational,
		StoreDocument:  Document,
	}
}

// DefaultTable is the routing table for this system.
func DefaultTable() map[Family]Store {
	return map[Family]Store{
		FamilyAuth:         StorePrimary,
		FamilyAdmin:        StorePrimary,
		FamilyContentTypes: StorePrimary,
		FamilySessions:     StorePrimary,
		FamilyUsers:        StorePrimary,
		FamilyJobs:         StorePrimary,
		FamilyResumes:      StorePrimary,
		FamilyCompanies:    StorePrimary,
		FamilyAnalytics:    StoreSecondary,
		FamilyArtifacts:    StoreDocument,
	}
}

// Router is an immutable family to store lookup.
type Router struct {
	table  map[Family]Store
	stores map[Store]Kind
}

// New validates table against the known stores.
func New(table map[Family]Store, stores map[Store]Kind) (*Router, error) {
	if len(table) == 0 {
		return nil, errors.New("routing table is empty")
	}
	r := &Router{
		table:  make(map[Family]Store, len(table)),
		stores: make(map[Store]Kind, len(stores)),
	}
	for s, k := range stores {
		if k != Relational && k != Document {
			return nil, fmt.Errorf("store %q has invalid kind %d", s, k)
		}
		r.stores[s] = k
	}
	var errs []error
	for f, s := range table {
		if f == "" {
			errs = append(errs, errors.New("empty family in routing table"))
			continue
		}
		if _, ok := r.stores[s]; !ok {
			errs = append(errs, fmt.Errorf("family %q routed to unknown store %q", f, s))
			continue
		}
		r.table[f] = s
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

// Default returns the router built from DefaultTable and DefaultStores.
func Default() *Router {
	r, err := New(DefaultTable(), DefaultStores())
	if err != nil {
		panic(err)
	}
	return r
}

// ForRead returns the store serving reads for f.
func (r *Router) ForRead(f Family) (Store, error) {
	s, ok := r.table[f]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFamily, f)
	}
	return s, nil
}

// ForWrite returns the store serving writes for f. There are no read replicas,
// so this always equals ForRead.
func (r *Router) ForWrite(f Family) (Store, error) {
	return r.ForRead(f)
}

// AllowRelation reports whether entities from a and b may reference each other.
func (r *Router) AllowRelation(a, b Family) bool {
	if a == b {
		return true
	}
	return r.relational(a) && r.relational(b)
}

// AllowMigrate reports whether family f may be migrated or initialized on store s.
// Unknown families are never migrated.
func (r *Router) AllowMigrate(s Store, f Family) bool {
	routed, ok := r.table[f]
	return ok && routed == s
}

// Families returns the families routed to s in sorted order.
func (r *Router) Families(s Store) []Family {
	var out []Family
	for f, routed := range r.table {
		if routed == s {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Router) relational(f Family) bool {
	s, ok := r.table[f]
	if !ok {
		return false
	}
	return r.stores[s] == Relational
}
