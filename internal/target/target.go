// Package target models a single coverage obligation (spec.md §3 "Target").
// Targets are immutable value types minted from a Builder arena (spec.md §9:
// "store everything by stable integer id in an arena"); the arena id is what
// every other package (graph, dependency map, goal manager, archive) uses as
// a map key, never a pointer.
package target

import (
	"strconv"

	"github.com/anjanaperera/premosa-go/internal/execution"
)

// Kind enumerates the coverage criteria a Target can belong to (spec.md §3).
type Kind int

const (
	Branch Kind = iota
	BranchlessMethod
	Line
	Statement
	Method
	MethodNoException
	WeakMutation
	StrongMutation
	Input
	Output
	TryCatch
	CBranch
	Exception
)

func (k Kind) String() string {
	switch k {
	case Branch:
		return "Branch"
	case BranchlessMethod:
		return "BranchlessMethod"
	case Line:
		return "Line"
	case Statement:
		return "Statement"
	case Method:
		return "Method"
	case MethodNoException:
		return "MethodNoException"
	case WeakMutation:
		return "WeakMutation"
	case StrongMutation:
		return "StrongMutation"
	case Input:
		return "Input"
	case Output:
		return "Output"
	case TryCatch:
		return "TryCatch"
	case CBranch:
		return "CBranch"
	case Exception:
		return "Exception"
	default:
		return "Unknown"
	}
}

// ID is a target's stable arena identity.
type ID int64

// FitnessFunction is the opaque per-target distance capability (spec.md
// §4.1, component 1). Fitness-function implementations for each coverage
// criterion are external collaborators; the core only ever calls Distance.
type FitnessFunction interface {
	// Distance returns a non-negative real; 0 means the target is covered.
	Distance(test execution.TestCase) float64
}

// Target is an immutable coverage goal. Other packages key maps by its
// ID(); a Target value itself can be hashed only when the dynamic type of
// its FitnessFunction is comparable (a func-typed one is not).
type Target struct {
	id    ID
	kind  Kind
	buggy bool
	fn    FitnessFunction

	// Populated for Branch (and CBranch expansions) targets only, except
	// className and methodName, which Method, MethodNoException and
	// BranchlessMethod targets also carry.
	branchID            int32
	expressionValue      bool
	className            string
	methodName           string
	instrumented         bool
	rootBranchDependent  bool

	// Populated for Exception targets.
	exceptionKey string

	// weight is the normalized defect score for the owning method,
	// carried per SPEC_FULL.md's "supplemented features" #2. It is not
	// read by the ranking implemented in this repository; see DESIGN.md's
	// Open Question entry on NumTestCasesInZeroFront.
	weight float64
}

func (t Target) ID() ID                    { return t.id }
func (t Target) Kind() Kind                { return t.kind }
func (t Target) Buggy() bool               { return t.buggy }
func (t Target) BranchID() int32           { return t.branchID }
func (t Target) ExpressionValue() bool     { return t.expressionValue }
func (t Target) ClassName() string         { return t.className }
func (t Target) MethodName() string        { return t.methodName }
func (t Target) Instrumented() bool        { return t.instrumented }
func (t Target) RootBranchDependent() bool { return t.rootBranchDependent }
func (t Target) ExceptionKey() string      { return t.exceptionKey }
func (t Target) Weight() float64           { return t.weight }

// IsBranch reports whether this target is a Branch or CBranch target, i.e.
// one with (branchID, expressionValue) identity.
func (t Target) IsBranch() bool {
	return t.kind == Branch || t.kind == CBranch
}

// BranchlessMethodKey is the "class.method" key of t's enclosing method.
// The goal manager uses it as the branchless-method slot key for
// BranchlessMethod targets (spec.md §4.2), and String uses it for method
// kinds.
func (t Target) BranchlessMethodKey() string {
	return t.className + "." + t.methodName
}

// Distance delegates to the external fitness function.
func (t Target) Distance(test execution.TestCase) float64 {
	return t.fn.Distance(test)
}

// String renders a goal identity for logs and archive diagnostics, mirroring
// the teacher's field-tagged debug logging style.
func (t Target) String() string {
	switch {
	case t.IsBranch():
		side := "false"
		if t.expressionValue {
			side = "true"
		}
		return t.className + "." + t.methodName + "#branch" + strconv.FormatInt(int64(t.branchID), 10) + ":" + side
	case t.kind == Exception:
		return "exception:" + t.exceptionKey
	case t.kind == Method || t.kind == MethodNoException || t.kind == BranchlessMethod:
		return t.kind.String() + ":" + t.BranchlessMethodKey()
	default:
		return t.kind.String() + "#" + strconv.FormatInt(int64(t.id), 10)
	}
}

// Builder mints Targets with arena-unique ids. A Builder is not safe for
// concurrent use; goal construction happens once, single-threaded, at
// manager build (spec.md §3 Lifecycle, §5 Scheduling model).
type Builder struct {
	next ID
}

// NewBuilder returns a fresh arena.
func NewBuilder() *Builder {
	return &Builder{next: 1}
}

func (b *Builder) allocate() ID {
	id := b.next
	b.next++
	return id
}

// BranchOpts carries the fields specific to Branch/CBranch targets.
type BranchOpts struct {
	BranchID            int32
	ExpressionValue     bool
	ClassName           string
	MethodName          string
	Instrumented        bool
	RootBranchDependent bool
}

// NewBranch mints a Branch target.
func (b *Builder) NewBranch(fn FitnessFunction, buggy bool, opts BranchOpts) Target {
	return Target{
		id:                  b.allocate(),
		kind:                Branch,
		buggy:               buggy,
		fn:                  fn,
		branchID:            opts.BranchID,
		expressionValue:     opts.ExpressionValue,
		className:           opts.ClassName,
		methodName:          opts.MethodName,
		instrumented:        opts.Instrumented,
		rootBranchDependent: opts.RootBranchDependent,
	}
}

// NewCBranch mints a context-sensitive branch copy (spec.md §4.2 CBranch).
// callContext is folded into the method name so each calling-context copy
// is a distinct Target identity, matching the original's per-context
// expansion.
func (b *Builder) NewCBranch(fn FitnessFunction, buggy bool, opts BranchOpts, callContext string) Target {
	t := b.NewBranch(fn, buggy, opts)
	t.kind = CBranch
	t.methodName = opts.MethodName + "@" + callContext
	return t
}

// NewBranchlessMethod mints a method target attached to the branchless-slot
// (spec.md §4.2: "a branchless method" target when there is no controlling
// branch).
func (b *Builder) NewBranchlessMethod(fn FitnessFunction, buggy bool, className, methodName string) Target {
	return Target{
		id:         b.allocate(),
		kind:       BranchlessMethod,
		buggy:      buggy,
		fn:         fn,
		className:  className,
		methodName: methodName,
	}
}

// NewMethod mints a Method or MethodNoException target.
func (b *Builder) NewMethod(kind Kind, fn FitnessFunction, buggy bool, className, methodName string) Target {
	return Target{
		id:         b.allocate(),
		kind:       kind,
		buggy:      buggy,
		fn:         fn,
		className:  className,
		methodName: methodName,
	}
}

// NewSimple mints a target of any non-branch, non-method, non-exception kind
// (Line, Statement, WeakMutation, StrongMutation, Input, Output, TryCatch).
func (b *Builder) NewSimple(kind Kind, fn FitnessFunction, buggy bool) Target {
	return Target{
		id:    b.allocate(),
		kind:  kind,
		buggy: buggy,
		fn:    fn,
	}
}

// NewException mints an Exception target for a newly discovered
// (class, method, type) key (spec.md §4.6 step 5).
func (b *Builder) NewException(fn FitnessFunction, key string) Target {
	return Target{
		id:           b.allocate(),
		kind:         Exception,
		buggy:        true,
		fn:           fn,
		exceptionKey: key,
	}
}

// WithWeight returns a copy of t carrying a normalized defect-score weight
// (SPEC_FULL.md supplemented feature #2).
func (t Target) WithWeight(w float64) Target {
	t.weight = w
	return t
}
