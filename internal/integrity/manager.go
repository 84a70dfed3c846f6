package integrity

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/cinema-management-api/internal/repository"
	"github.com/iliyamo/cinema-management-api/internal/store"
)

// Manager runs every write that touches references.  All validation
// happens before the first mutating store call; once the primary write
// succeeds, a failing back-reference write is undone by compensations.
type Manager struct {
	st    store.Store
	locks Locker
	log   echo.Logger
}

// NewManager returns a Manager.  A nil locker selects the process-local
// keyed mutex.
func NewManager(st store.Store, locks Locker, logger echo.Logger) *Manager {
	if locks == nil {
		locks = NewLocalLocker()
	}
	return &Manager{st: st, locks: locks, log: logger}
}

// undo is one compensating action.
type undo struct {
	what string
	run  func(ctx context.Context) error
}

// compensate runs undos newest first.  Failures are logged; there is
// nothing left to fall back to.
func (m *Manager) compensate(ctx context.Context, undos []undo) {
	ctx = context.WithoutCancel(ctx)
	for i := len(undos) - 1; i >= 0; i-- {
		if err := undos[i].run(ctx); err != nil {
			m.log.Errorf("integrity: compensation %q failed: %v", undos[i].what, err)
		}
	}
}

// Create validates the references of v, inserts it into coll and writes
// the back-references.  It returns the new identifier.
func (m *Manager) Create(ctx context.Context, coll string, v any) (string, error) {
	doc, err := toDoc(v)
	if err != nil {
		return "", err
	}
	oid := primitive.NewObjectID()
	doc["_id"] = oid
	id := oid.Hex()
	normalizeLists(coll, doc, false)

	refs, err := m.validate(ctx, coll, id, doc)
	if err != nil {
		return "", err
	}
	if _, err := m.st.InsertOne(ctx, coll, doc); err != nil {
		return "", err
	}

	var undos []undo
	for _, l := range Links(coll) {
		l := l // per-iteration copy: captured by the undo closure
		ids := refs[l.Field]
		if !l.Propagate || len(ids) == 0 {
			continue
		}
		undos = append(undos, undo{
			what: fmt.Sprintf("unlink %s.%s", l.Target, l.BackRef),
			run:  func(ctx context.Context) error { return m.unlink(ctx, l, ids, id) },
		})
		if err := m.link(ctx, l, ids, id, false); err != nil {
			m.log.Errorf("integrity: linking %s/%s into %s.%s failed: %v", coll, id, l.Target, l.BackRef, err)
			m.compensate(ctx, undos)
			if _, derr := m.st.DeleteOne(context.WithoutCancel(ctx), coll, store.ByID(id)); derr != nil {
				m.log.Errorf("integrity: removing %s/%s after failed link: %v", coll, id, derr)
			}
			return "", fmt.Errorf("%w: %s.%s: %v", repository.ErrAssociationFailed, l.Target, l.BackRef, err)
		}
	}
	return id, nil
}

// Update sets the fields present in set on the document and moves its
// back-references: targets newly referenced gain the id, targets no longer
// referenced lose it.  Reference lists are replaced, not merged.
func (m *Manager) Update(ctx context.Context, coll, id string, set bson.M) error {
	if !store.ValidID(id) {
		return fmt.Errorf("%w: invalid id %q", repository.ErrInvalidInput, id)
	}
	unlock, err := m.locks.Lock(ctx, coll+":"+id)
	if err != nil {
		return err
	}
	defer unlock()

	raw, err := m.st.FindOne(ctx, coll, id)
	if errors.Is(err, store.ErrNoDocument) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	var old bson.M
	if err := bson.Unmarshal(raw, &old); err != nil {
		return err
	}

	set, err = toDoc(set)
	if err != nil {
		return err
	}
	delete(set, "_id")
	normalizeLists(coll, set, true)

	refs, err := m.validate(ctx, coll, id, set)
	if err != nil {
		return err
	}
	if len(set) == 0 {
		return nil
	}
	n, err := m.st.UpdateOne(ctx, coll, store.ByID(id), store.Update{Set: set})
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}

	undos := []undo{{
		what: "restore " + coll + "/" + id,
		run: func(ctx context.Context) error {
			_, err := m.st.UpdateOne(ctx, coll, store.ByID(id), restoreUpdate(old, set))
			return err
		},
	}}
	fail := func(l Link, err error) error {
		m.log.Errorf("integrity: moving %s.%s for %s/%s failed: %v", l.Target, l.BackRef, coll, id, err)
		m.compensate(ctx, undos)
		return fmt.Errorf("%w: %s.%s: %v", repository.ErrAssociationFailed, l.Target, l.BackRef, err)
	}
	for _, l := range Links(coll) {
		l := l // per-iteration copy: captured by the undo closures
		if _, sent := set[l.Field]; !sent || !l.Propagate {
			continue
		}
		oldIDs, _ := refIDs(old[l.Field])
		newIDs := refs[l.Field]
		added, removed := difference(newIDs, oldIDs), difference(oldIDs, newIDs)

		if len(newIDs) > 0 {
			undos = append(undos, undo{
				what: fmt.Sprintf("unlink %s.%s", l.Target, l.BackRef),
				run:  func(ctx context.Context) error { return m.unlink(ctx, l, added, id) },
			})
			// every current target, so a missing back-reference is repaired
			if err := m.link(ctx, l, newIDs, id, true); err != nil {
				return fail(l, err)
			}
		}
		if len(removed) > 0 {
			undos = append(undos, undo{
				what: fmt.Sprintf("relink %s.%s", l.Target, l.BackRef),
				run:  func(ctx context.Context) error { return m.link(ctx, l, removed, id, true) },
			})
			if err := m.unlink(ctx, l, removed, id); err != nil {
				return fail(l, err)
			}
		}
	}
	return nil
}

// Delete removes the document and runs every cascade rule for its
// collection.  All rules are attempted; if any fails the error wraps
// ErrAssociationFailed and names each failed rule.
func (m *Manager) Delete(ctx context.Context, coll, id string) error {
	if !store.ValidID(id) {
		return fmt.Errorf("%w: invalid id %q", repository.ErrInvalidInput, id)
	}
	unlock, err := m.locks.Lock(ctx, coll+":"+id)
	if err != nil {
		return err
	}
	defer unlock()

	n, err := m.st.DeleteOne(ctx, coll, store.ByID(id))
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}

	// the primary delete is committed; finish the cleanup regardless of the client
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, c := range Cascades(coll) {
		if err := m.cascade(ctx, c, id); err != nil {
			m.log.Errorf("integrity: cascade %s %s.%s for %s/%s failed: %v", c.Action, c.Collection, c.Field, coll, id, err)
			errs = append(errs, fmt.Errorf("%s %s.%s: %w", c.Action, c.Collection, c.Field, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", repository.ErrAssociationFailed, errors.Join(errs...))
	}
	return nil
}

func (m *Manager) cascade(ctx context.Context, c Cascade, id string) error {
	f := store.Filter{store.Eq(c.Field, id)}
	var err error
	switch c.Action {
	case Pull:
		_, err = m.st.UpdateMany(ctx, c.Collection, f, store.Update{Pull: bson.M{c.Field: id}})
	case Unset:
		_, err = m.st.UpdateMany(ctx, c.Collection, f, store.Update{Unset: []string{c.Field}})
	case Delete:
		_, err = m.st.DeleteMany(ctx, c.Collection, f)
	default:
		err = fmt.Errorf("unknown cascade action %d", c.Action)
	}
	return err
}

// validate checks the reference fields present in doc: first the syntax of
// every id, then one existence count per field, then the one-to-one
// links.  List fields in doc are rewritten without repeated ids.  It
// returns the de-duplicated ids per field.  self is the id of the document
// being written.
func (m *Manager) validate(ctx context.Context, coll, self string, doc bson.M) (map[string][]string, error) {
	refs := make(map[string][]string)
	for _, l := range Links(coll) {
		v, ok := doc[l.Field]
		if !ok {
			continue
		}
		ids, err := refIDs(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", repository.ErrInvalidReference, l.Field, err)
		}
		for _, ref := range ids {
			if !store.ValidID(ref) {
				return nil, fmt.Errorf("%w: %s contains %q", repository.ErrInvalidReference, l.Field, ref)
			}
		}
		refs[l.Field] = ids
		if l.Shape == List {
			list := make(primitive.A, len(ids))
			for i, ref := range ids {
				list[i] = ref
			}
			doc[l.Field] = list
		}
	}
	for _, l := range Links(coll) {
		ids := refs[l.Field]
		if len(ids) == 0 {
			continue
		}
		n, err := m.st.Count(ctx, l.Target, store.ByIDs(ids))
		if err != nil {
			return nil, err
		}
		if int(n) != len(ids) {
			m.log.Warnf("integrity: %s.%s references %d missing %s", coll, l.Field, len(ids)-int(n), l.Target)
			return nil, &repository.ReferenceError{Field: l.Field, Target: l.Target, Requested: len(ids), Found: int(n)}
		}
	}
	for _, l := range Links(coll) {
		if l.Shape != Single || l.BackShape != Single || len(refs[l.Field]) == 0 {
			continue
		}
		if err := m.checkExclusive(ctx, coll, self, l, refs[l.Field][0]); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

// checkExclusive fails with ErrConflict when target already points back at
// a document other than self.
func (m *Manager) checkExclusive(ctx context.Context, coll, self string, l Link, target string) error {
	raw, err := m.st.FindOne(ctx, l.Target, target)
	if err != nil {
		return err
	}
	owner, ok := raw.Lookup(l.BackRef).StringValueOK()
	if !ok || owner == "" || owner == self {
		return nil
	}
	m.log.Warnf("integrity: %s/%s is already linked to %s/%s", l.Target, target, coll, owner)
	return fmt.Errorf("%w: %s %s is already linked to %s %s", repository.ErrConflict, l.Target, target, coll, owner)
}

// link writes id into the back-reference field of every target.
func (m *Manager) link(ctx context.Context, l Link, targets []string, id string, idempotent bool) error {
	var u store.Update
	switch {
	case l.BackShape == Single:
		u.Set = bson.M{l.BackRef: id}
	case idempotent:
		u.AddToSet = bson.M{l.BackRef: id}
	default:
		u.Push = bson.M{l.BackRef: id}
	}
	_, err := m.st.UpdateMany(ctx, l.Target, store.ByIDs(targets), u)
	return err
}

// unlink removes id from the back-reference field of every target.  A
// single-valued back-reference is only cleared while it still holds id.
func (m *Manager) unlink(ctx context.Context, l Link, targets []string, id string) error {
	if len(targets) == 0 {
		return nil
	}
	if l.BackShape == Single {
		f := store.ByIDs(targets).And(store.Eq(l.BackRef, id))
		_, err := m.st.UpdateMany(ctx, l.Target, f, store.Update{Unset: []string{l.BackRef}})
		return err
	}
	_, err := m.st.UpdateMany(ctx, l.Target, store.ByIDs(targets), store.Update{Pull: bson.M{l.BackRef: id}})
	return err
}

// restoreUpdate puts back the previous values of the fields in set.
func restoreUpdate(old, set bson.M) store.Update {
	u := store.Update{Set: bson.M{}}
	for k := range set {
		if v, ok := old[k]; ok {
			u.Set[k] = v
		} else {
			u.Unset = append(u.Unset, k)
		}
	}
	return u
}

func toDoc(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// normalizeLists stores list-shaped reference fields as empty arrays
// instead of null so later $push and $pull work.  With presentOnly only
// fields already in doc are touched.
func normalizeLists(coll string, doc bson.M, presentOnly bool) {
	for _, l := range Links(coll) {
		if l.Shape != List {
			continue
		}
		v, ok := doc[l.Field]
		if (!ok && !presentOnly) || (ok && v == nil) {
			doc[l.Field] = primitive.A{}
		}
	}
}

// refIDs reads a reference field as a de-duplicated list of ids.  Empty
// and null single references yield no ids.
func refIDs(v any) ([]string, error) {
	var raw []any
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" {
			return nil, nil
		}
		return []string{t}, nil
	case primitive.A:
		raw = t
	case []any:
		raw = t
	case []string:
		raw = make([]any, len(t))
		for i, s := range t {
			raw[i] = s
		}
	default:
		return nil, fmt.Errorf("expected identifier, got %T", v)
	}
	seen := make(map[string]bool, len(raw))
	ids := make([]string, 0, len(raw))
	for _, x := range raw {
		s, ok := x.(string)
		if !ok {
			return nil, fmt.Errorf("expected identifier, got %T", x)
		}
		if !seen[s] {
			seen[s] = true
			ids = append(ids, s)
		}
	}
	return ids, nil
}

// difference returns the ids of a that are not in b.
func difference(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, s := range b {
		in[s] = true
	}
	var out []string
	for _, s := range a {
		if !in[s] {
			out = append(out, s)
		}
	}
	return out
}
