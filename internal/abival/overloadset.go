package abival

import "sort"

// OverloadSet is the deduplicated, grouped collection of every overload a
// host binary requires, keyed by kernel name. Both the kernel-name order
// and the per-kernel overload order are deterministic: first occurrence
// in the host ELF symbol table wins, and the set is additionally sorted
// stably by kernel name before emission (spec §5) so that repeated
// builds with identical inputs produce byte-identical option modules.
type OverloadSet struct {
	order   []string
	byName  map[string][]Overload
	seen    map[string]map[string]bool // kernel name -> mangled overload -> present
	mangler func(Overload) string
}

// NewOverloadSet builds an empty set. mangle is used to detect duplicate
// overloads within a kernel; pass a function that deterministically
// renders an Overload (typically the mangling package's Overload encoder).
func NewOverloadSet(mangle func(Overload) string) *OverloadSet {
	return &OverloadSet{
		byName:  make(map[string][]Overload),
		seen:    make(map[string]map[string]bool),
		mangler: mangle,
	}
}

// Add inserts one KernelConfig's overload into the set, preserving
// first-seen order within the kernel and collapsing exact duplicates.
func (s *OverloadSet) Add(kernel string, o Overload) {
	seenForKernel, ok := s.seen[kernel]
	if !ok {
		seenForKernel = make(map[string]bool)
		s.seen[kernel] = seenForKernel
		s.order = append(s.order, kernel)
	}
	key := s.mangler(o)
	if seenForKernel[key] {
		return
	}
	seenForKernel[key] = true
	s.byName[kernel] = append(s.byName[kernel], o)
}

// Kernels returns kernel names in first-seen insertion order.
func (s *OverloadSet) Kernels() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// SortedKernels returns kernel names sorted stably for deterministic
// emission, per spec §5's ordering guarantee.
func (s *OverloadSet) SortedKernels() []string {
	out := s.Kernels()
	sort.Strings(out)
	return out
}

// Overloads returns the overloads registered for kernel, in first-seen order.
func (s *OverloadSet) Overloads(kernel string) []Overload {
	return s.byName[kernel]
}

// Len reports the total number of distinct (kernel, overload) pairs.
func (s *OverloadSet) Len() int {
	n := 0
	for _, ovs := range s.byName {
		n += len(ovs)
	}
	return n
}

// Contains reports whether kernel has an overload whose mangled form
// equals mangledOverload.
func (s *OverloadSet) Contains(kernel, mangledOverload string) bool {
	return s.seen[kernel] != nil && s.seen[kernel][mangledOverload]
}

// Missing returns, for each kernel in the set, the overloads present in
// s but absent from have (a kernel -> set-of-mangled-overload map),
// preserving first-seen order. Used to build the MissingKernelDeclaration
// diagnostic (spec §4.8 step 3, §7).
func (s *OverloadSet) Missing(have map[string]map[string]bool) []KernelConfig {
	var missing []KernelConfig
	for _, kernel := range s.Kernels() {
		for _, o := range s.byName[kernel] {
			key := s.mangler(o)
			if have[kernel] != nil && have[kernel][key] {
				continue
			}
			missing = append(missing, KernelConfig{Kernel: Kernel{Name: kernel}, Overload: o})
		}
	}
	return missing
}
