package params

import "iter"

// Iterable is a lazy, restartable source of Specs. Iteration stops after the
// first non-nil error.
type Iterable iter.Seq2[Spec, error]

// Unit yields exactly one empty Spec.
func Unit() Iterable {
	return func(yield func(Spec, error) bool) {
		yield(Spec{}, nil)
	}
}

// Options yields {key: v} for each v in values, in order.
func Options(key string, values ...any) Iterable {
	return func(yield func(Spec, error) bool) {
		for _, v := range values {
			s, err := Spec{}.With(key, v)
			if !yield(s, err) || err != nil {
				return
			}
		}
	}
}

// List yields the given Specs unchanged.
func List(specs ...Spec) Iterable {
	return func(yield func(Spec, error) bool) {
		for _, s := range specs {
			if !yield(s, nil) {
				return
			}
		}
	}
}

// Combine yields the cartesian product of its inputs, merging one Spec from
// each input in input order. The first input varies slowest. No inputs yield
// nothing; an empty input makes the whole product empty.
func Combine(its ...Iterable) Iterable {
	switch len(its) {
	case 0:
		return func(func(Spec, error) bool) {}
	case 1:
		return its[0]
	}
	first, rest := its[0], Combine(its[1:]...)
	return func(yield func(Spec, error) bool) {
		for a, err := range first {
			if err != nil {
				yield(Spec{}, err)
				return
			}
			for b, err := range rest {
				if err != nil {
					yield(Spec{}, err)
					return
				}
				merged, err := Merge(a, b)
				if !yield(merged, err) || err != nil {
					return
				}
			}
		}
	}
}

// Filter yields the Specs of it for which keep returns true.
func Filter(it Iterable, keep func(Spec) bool) Iterable {
	return func(yield func(Spec, error) bool) {
		for s, err := range it {
			if err != nil {
				yield(Spec{}, err)
				return
			}
			if keep(s) && !yield(s, nil) {
				return
			}
		}
	}
}

// Expand merges every Spec of it with each Spec of the Iterable that fn
// derives from it. Use it for parameters whose domain depends on earlier ones.
func Expand(it Iterable, fn func(Spec) Iterable) Iterable {
	return func(yield func(Spec, error) bool) {
		for a, err := range it {
			if err != nil {
				yield(Spec{}, err)
				return
			}
			for b, err := range fn(a) {
				if err != nil {
					yield(Spec{}, err)
					return
				}
				merged, err := Merge(a, b)
				if !yield(merged, err) || err != nil {
					return
				}
			}
		}
	}
}

// Collect materializes it, returning the first error encountered.
func Collect(it Iterable) ([]Spec, error) {
	var out []Spec
	for s, err := range it {
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Count returns the number of Specs produced by it.
func Count(it Iterable) (int, error) {
	n := 0
	for _, err := range it {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}
