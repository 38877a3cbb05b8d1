// Package defectscore loads per-class defect-prediction CSV files and
// resolves them to method identities (spec.md §6 "Defect-score file").
package defectscore

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
)

// Method is one normalized defect-score entry.
type Method struct {
	FQName string // normalized fully-qualified method name
	Score  float64
	// Weight is the normalized defect score (score / sum of all scores in
	// the owning class), a supplement carried from original_source/'s
	// Method.normalizeDefectScore (SPEC_FULL.md supplemented feature #2).
	Weight float64
}

// Buggy reports whether the method's defect-prediction score is non-zero
// (GLOSSARY: "Buggy goal: a target residing in a method whose
// defect-prediction score is non-zero").
func (m Method) Buggy() bool {
	return m.Score != 0
}

// Normalize applies the fqMethodName normalization rules from spec.md §6:
// `)void:` -> `):`, `...` -> `[]`, and strips generic type parameters
// (`<...>`).
func Normalize(fqName string) string {
	s := stripGenerics(fqName)
	s = strings.ReplaceAll(s, "...", "[]")
	s = strings.ReplaceAll(s, ")void:", "):")
	return s
}

func stripGenerics(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// ParseCSV reads one class's defect-score CSV: header row, columns
// fqMethodName, defectScore (spec.md §6). The first line is always treated
// as a header and discarded.
func ParseCSV(r io.Reader) ([]Method, error) {
	scanner := bufio.NewScanner(r)
	var methods []Method
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if lineNo == 1 {
			continue // header row
		}
		cols := strings.SplitN(line, ",", 2)
		if len(cols) != 2 {
			return nil, fmt.Errorf("defectscore: malformed row %d: %q", lineNo, line)
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(cols[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("defectscore: bad score on row %d: %w", lineNo, err)
		}
		methods = append(methods, Method{
			FQName: Normalize(strings.TrimSpace(cols[0])),
			Score:  score,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("defectscore: read failed: %w", err)
	}
	calculateWeights(methods)
	return methods, nil
}

// calculateWeights normalizes each method's score against the sum of all
// scores in the same file (original_source/ MethodPool.calculateWeights).
func calculateWeights(methods []Method) {
	var sum float64
	for _, m := range methods {
		sum += m.Score
	}
	if sum == 0 {
		return
	}
	for i := range methods {
		methods[i].Weight = methods[i].Score / sum
	}
}

// Registry is a per-class lookup table over loaded defect-score methods,
// replacing the original's MethodPool.getInstance per-class singleton with
// an explicit, constructible value (spec.md §9, SPEC_FULL.md supplemented
// feature #3).
type Registry struct {
	// byClass maps top-level class name to its methods, keyed by
	// normalized fqName for direct lookup.
	byClass map[string]map[string]Method
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byClass: make(map[string]map[string]Method)}
}

// LoadDir loads every *.csv file under dir (spec.md §6 DP_DIR), one file
// per top-level class, named "<ClassName>.csv".
func LoadDir(fsys fs.FS, dir string) (*Registry, error) {
	reg := NewRegistry()
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("defectscore: read dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".csv" {
			continue
		}
		class := strings.TrimSuffix(entry.Name(), ".csv")
		f, err := fsys.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("defectscore: open %s: %w", entry.Name(), err)
		}
		methods, err := ParseCSV(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("defectscore: parse %s: %w", entry.Name(), err)
		}
		byName := make(map[string]Method, len(methods))
		for _, m := range methods {
			byName[m.FQName] = m
		}
		reg.byClass[class] = byName
	}
	return reg, nil
}

// Lookup resolves a method by (className, fqMethodName), falling back
// through inner-class splitting on "." or "$" when the class is nested,
// matching MethodPool.getMethodsByEvoFormatName's inner-class fallback
// (SPEC_FULL.md supplemented feature #3). ok is false when no entry is
// found at any level — callers should treat this as spec.md §7's
// GoalMissing: "logged and skipped (the method is treated as non-buggy)".
func (r *Registry) Lookup(className, fqMethodName string) (Method, bool) {
	name := Normalize(fqMethodName)
	for _, candidate := range innerClassCandidates(className) {
		if methods, ok := r.byClass[candidate]; ok {
			if m, ok := methods[name]; ok {
				return m, true
			}
		}
	}
	return Method{}, false
}

// innerClassCandidates yields className, then progressively outer
// enclosing-class prefixes split on "." and "$", outermost last.
func innerClassCandidates(className string) []string {
	candidates := []string{className}
	cur := className
	for {
		idx := strings.LastIndexAny(cur, ".$")
		if idx < 0 {
			break
		}
		cur = cur[:idx]
		candidates = append(candidates, cur)
	}
	return candidates
}

// Classes returns every class name with a loaded CSV, for diagnostics.
func (r *Registry) Classes() []string {
	out := make([]string, 0, len(r.byClass))
	for c := range r.byClass {
		out = append(out, c)
	}
	return out
}
