// Package scenario parses the scenario file grammar of spec.md §6: a
// line-oriented `key = value` format where values are scalars or
// bracket-nested 1-D/2-D/3-D vectors.
package scenario

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"k8s.io/klog/v2"

	"cipfed/pkg/types"
)

// value is the parsed right-hand side of one record, before it is placed
// into a Scenario field. Exactly one of its fields is populated, decided
// by how many levels of '[' the value started with.
type value struct {
	scalar string
	vec1   []string
	vec2   [][]string
	vec3   [][][]string
}

// record is one parsed `key = value` line.
type record struct {
	key string
	val value
}

// Parse reads a scenario file from r and builds a *types.Scenario.
// Only num_cips/num_pm_types/num_vm_types are mandatory; every other key
// defaults to zero/all-off when absent, per spec.md §6.
func Parse(r io.Reader) (*types.Scenario, error) {
	records, err := scan(r)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	return build(records)
}

// ParseFile opens path and parses it as a scenario file.
func ParseFile(path string) (*types.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// scan turns the raw text into key/value records, skipping comments and
// blank lines and lower-casing keys.
func scan(r io.Reader) ([]record, error) {
	var records []record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			return nil, fmt.Errorf("line %d: expected 'key = value', got %q", lineNo, line)
		}
		key := strings.ToLower(strings.TrimSpace(line[:eq]))
		rawVal := strings.TrimSpace(line[eq+1:])
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", lineNo)
		}
		v, err := parseValue(rawVal)
		if err != nil {
			return nil, fmt.Errorf("line %d: key %q: %w", lineNo, key, err)
		}
		records = append(records, record{key: key, val: v})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// parseValue dispatches on the value's bracket depth: a bare scalar, or a
// '['-delimited vector whose elements are themselves scalars, 1-D vectors,
// or 2-D vectors (giving 1-D/2-D/3-D shapes respectively).
func parseValue(raw string) (value, error) {
	if !strings.HasPrefix(raw, "[") {
		return value{scalar: raw}, nil
	}
	tokens, err := tokenizeBrackets(raw)
	if err != nil {
		return value{}, err
	}
	return buildValue(tokens)
}

// tokenizeBrackets splits a bracketed value into a flat stream of
// '[', ']', and bare-word tokens.
func tokenizeBrackets(raw string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	depth := 0
	for _, r := range raw {
		switch {
		case r == '[':
			flush()
			tokens = append(tokens, "[")
			depth++
		case r == ']':
			flush()
			tokens = append(tokens, "]")
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced ']'")
			}
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced '['")
	}
	return tokens, nil
}

// buildValue consumes the full token stream (one top-level bracket group)
// and classifies it by the depth of its elements.
func buildValue(tokens []string) (value, error) {
	if len(tokens) < 2 || tokens[0] != "[" || tokens[len(tokens)-1] != "]" {
		return value{}, fmt.Errorf("expected a bracketed value")
	}
	inner := tokens[1 : len(tokens)-1]
	if len(inner) == 0 {
		return value{vec1: nil}, nil
	}
	if inner[0] != "[" {
		// 1-D: every element is a bare scalar.
		for _, tok := range inner {
			if tok == "[" || tok == "]" {
				return value{}, fmt.Errorf("malformed vector: unexpected bracket")
			}
		}
		return value{vec1: append([]string(nil), inner...)}, nil
	}

	rows, err := splitGroups(inner)
	if err != nil {
		return value{}, err
	}
	if len(rows) == 0 {
		return value{vec2: nil}, nil
	}

	// Each row is itself bracketed; peek inside the first row to see
	// whether its contents are bare scalars (2-D) or further bracketed
	// groups (3-D).
	firstInner := rows[0][1 : len(rows[0])-1]
	if len(firstInner) > 0 && firstInner[0] == "[" {
		var vec3 [][][]string
		for _, row := range rows {
			sub := row[1 : len(row)-1]
			cols, err := splitGroups(sub)
			if err != nil {
				return value{}, err
			}
			var plane [][]string
			for _, c := range cols {
				plane = append(plane, append([]string(nil), c[1:len(c)-1]...))
			}
			vec3 = append(vec3, plane)
		}
		return value{vec3: vec3}, nil
	}

	var vec2 [][]string
	for _, row := range rows {
		vec2 = append(vec2, append([]string(nil), row[1:len(row)-1]...))
	}
	return value{vec2: vec2}, nil
}

// splitGroups splits a token stream consisting of consecutive bracketed
// groups (e.g. "[ a b ] [ c d ]") into one token slice per group,
// including the enclosing brackets.
func splitGroups(tokens []string) ([][]string, error) {
	var groups [][]string
	depth := 0
	var cur []string
	for _, tok := range tokens {
		cur = append(cur, tok)
		switch tok {
		case "[":
			depth++
		case "]":
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced ']'")
			}
			if depth == 0 {
				groups = append(groups, cur)
				cur = nil
			}
		}
	}
	if depth != 0 || len(cur) != 0 {
		return nil, fmt.Errorf("malformed nested vector")
	}
	return groups, nil
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseBool(s string) (bool, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "1", "true", "t", "yes", "on":
		return true, nil
	case "0", "false", "f", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", s)
	}
}

// build assembles a *types.Scenario from the parsed records, applying
// spec.md §6's defaulting rules: only the three counts are mandatory,
// everything else defaults to zero/all-off.
func build(records []record) (*types.Scenario, error) {
	index := make(map[string]value, len(records))
	for _, rec := range records {
		index[rec.key] = rec.val
	}

	numCIPs, err := requireInt(index, "num_cips")
	if err != nil {
		return nil, err
	}
	numPMTypes, err := requireInt(index, "num_pm_types")
	if err != nil {
		return nil, err
	}
	numVMTypes, err := requireInt(index, "num_vm_types")
	if err != nil {
		return nil, err
	}

	sc := &types.Scenario{
		NumCIPs: numCIPs,
		PMTypes: make([]types.PMType, numPMTypes),
		VMTypes: make([]types.VMType, numVMTypes),
	}

	minPowers, err := floatVec1(index, "pm_spec_min_powers", numPMTypes)
	if err != nil {
		return nil, err
	}
	maxPowers, err := floatVec1(index, "pm_spec_max_powers", numPMTypes)
	if err != nil {
		return nil, err
	}
	for t := 0; t < numPMTypes; t++ {
		sc.PMTypes[t] = types.PMType{PMin: minPowers[t], PMax: maxPowers[t]}
	}

	cpus, err := floatVec2(index, "vm_spec_cpus", numVMTypes, numPMTypes)
	if err != nil {
		return nil, err
	}
	rams, err := floatVec2(index, "vm_spec_rams", numVMTypes, numPMTypes)
	if err != nil {
		return nil, err
	}
	for v := 0; v < numVMTypes; v++ {
		sc.VMTypes[v] = types.VMType{CPU: cpus[v], RAM: rams[v]}
	}

	revenue, err := floatVec2(index, "cip_revenues", numCIPs, numVMTypes)
	if err != nil {
		return nil, err
	}
	sc.Revenue = revenue

	elecPrice, err := floatVec1Alias(index, "cip_electricity_costs", "cip_wcosts", numCIPs)
	if err != nil {
		return nil, err
	}
	sc.ElectricityPrice = elecPrice

	numPMs, err := intMapVec2(index, "cip_num_pms", numCIPs, numPMTypes)
	if err != nil {
		return nil, err
	}
	sc.NumPMs = numPMs

	numVMs, err := intMapVec2(index, "cip_num_vms", numCIPs, numVMTypes)
	if err != nil {
		return nil, err
	}
	sc.NumVMs = numVMs

	switchOn, err := floatMapVec2(index, "cip_pm_asleep_costs", numCIPs, numPMTypes)
	if err != nil {
		return nil, err
	}
	sc.SwitchOnCost = switchOn

	switchOff, err := floatMapVec2(index, "cip_pm_awake_costs", numCIPs, numPMTypes)
	if err != nil {
		return nil, err
	}
	sc.SwitchOffCost = switchOff

	powerStates, err := boolVecRagged(index, "cip_pm_power_states", numCIPs)
	if err != nil {
		return nil, err
	}
	sc.PMPowerStates = powerStates

	migration, err := migrationTable(index, numCIPs, numVMTypes)
	if err != nil {
		return nil, err
	}
	sc.Migration = migration

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return sc, nil
}

func requireInt(index map[string]value, key string) (int, error) {
	v, ok := index[key]
	if !ok {
		return 0, fmt.Errorf("missing mandatory field %q", key)
	}
	n, err := parseInt(v.scalar)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("field %q must be positive, got %d", key, n)
	}
	return n, nil
}

// floatVec1 returns a [n]float64 row, defaulting every entry to zero when
// the key is absent, and erroring on a shape mismatch when present.
func floatVec1(index map[string]value, key string, n int) ([]float64, error) {
	return floatVec1Alias(index, key, "", n)
}

func floatVec1Alias(index map[string]value, key, alias string, n int) ([]float64, error) {
	v, ok := index[key]
	if !ok && alias != "" {
		v, ok = index[alias]
	}
	out := make([]float64, n)
	if !ok {
		klog.V(2).Infof("scenario: %q absent, defaulting to zero", key)
		return out, nil
	}
	if len(v.vec1) != n {
		return nil, fmt.Errorf("field %q must have %d entries, got %d", key, n, len(v.vec1))
	}
	for i, s := range v.vec1 {
		f, err := parseFloat(s)
		if err != nil {
			return nil, fmt.Errorf("field %q[%d]: %w", key, i, err)
		}
		out[i] = f
	}
	return out, nil
}

// floatVec2 returns a [rows][cols]float64 table, defaulting to all-zero
// when the key is absent.
func floatVec2(index map[string]value, key string, rows, cols int) ([][]float64, error) {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}
	v, ok := index[key]
	if !ok {
		klog.V(2).Infof("scenario: %q absent, defaulting to zero", key)
		return out, nil
	}
	if len(v.vec2) != rows {
		return nil, fmt.Errorf("field %q must have %d rows, got %d", key, rows, len(v.vec2))
	}
	for i, row := range v.vec2 {
		if len(row) != cols {
			return nil, fmt.Errorf("field %q[%d] must have %d columns, got %d", key, i, cols, len(row))
		}
		for j, s := range row {
			f, err := parseFloat(s)
			if err != nil {
				return nil, fmt.Errorf("field %q[%d][%d]: %w", key, i, j, err)
			}
			out[i][j] = f
		}
	}
	return out, nil
}

// intMapVec2 returns a [rows]map[col]int representation of a [rows][cols]
// counts table, defaulting to all-zero (empty maps) when absent.
func intMapVec2(index map[string]value, key string, rows, cols int) ([]map[int]int, error) {
	out := make([]map[int]int, rows)
	for i := range out {
		out[i] = make(map[int]int)
	}
	v, ok := index[key]
	if !ok {
		klog.V(2).Infof("scenario: %q absent, defaulting to zero", key)
		return out, nil
	}
	if len(v.vec2) != rows {
		return nil, fmt.Errorf("field %q must have %d rows, got %d", key, rows, len(v.vec2))
	}
	for i, row := range v.vec2 {
		if len(row) != cols {
			return nil, fmt.Errorf("field %q[%d] must have %d columns, got %d", key, i, cols, len(row))
		}
		for j, s := range row {
			n, err := parseInt(s)
			if err != nil {
				return nil, fmt.Errorf("field %q[%d][%d]: %w", key, i, j, err)
			}
			if n != 0 {
				out[i][j] = n
			}
		}
	}
	return out, nil
}

// floatMapVec2 is intMapVec2's float64 counterpart, used for per-type
// switch-on/switch-off cost tables.
func floatMapVec2(index map[string]value, key string, rows, cols int) ([]map[int]float64, error) {
	out := make([]map[int]float64, rows)
	for i := range out {
		out[i] = make(map[int]float64)
	}
	v, ok := index[key]
	if !ok {
		klog.V(2).Infof("scenario: %q absent, defaulting to zero", key)
		return out, nil
	}
	if len(v.vec2) != rows {
		return nil, fmt.Errorf("field %q must have %d rows, got %d", key, rows, len(v.vec2))
	}
	for i, row := range v.vec2 {
		if len(row) != cols {
			return nil, fmt.Errorf("field %q[%d] must have %d columns, got %d", key, i, cols, len(row))
		}
		for j, s := range row {
			f, err := parseFloat(s)
			if err != nil {
				return nil, fmt.Errorf("field %q[%d][%d]: %w", key, i, j, err)
			}
			if f != 0 {
				out[i][j] = f
			}
		}
	}
	return out, nil
}

// boolVecRagged returns a [rows][]bool table whose per-row length (H_i in
// spec.md §6) is ragged and determined entirely by what's present in the
// file; absent rows default to empty (all PMs reported off).
func boolVecRagged(index map[string]value, key string, rows int) ([][]bool, error) {
	out := make([][]bool, rows)
	v, ok := index[key]
	if !ok {
		klog.V(2).Infof("scenario: %q absent, defaulting all PMs to off", key)
		return out, nil
	}
	if len(v.vec2) != rows {
		return nil, fmt.Errorf("field %q must have %d rows, got %d", key, rows, len(v.vec2))
	}
	for i, row := range v.vec2 {
		states := make([]bool, len(row))
		for j, s := range row {
			b, err := parseBool(s)
			if err != nil {
				return nil, fmt.Errorf("field %q[%d][%d]: %w", key, i, j, err)
			}
			states[j] = b
		}
		out[i] = states
	}
	return out, nil
}

// migrationTable returns the full [N][N][V] migration-cost table,
// defaulting to all-zero when absent. Per spec.md §9's resolved open
// question, a present-but-mismatched shape is a fatal parse error - it is
// never coerced or assumed to be diagonal-only.
func migrationTable(index map[string]value, n, numVMTypes int) ([][][]float64, error) {
	out := make([][][]float64, n)
	for i := range out {
		out[i] = make([][]float64, n)
		for j := range out[i] {
			out[i][j] = make([]float64, numVMTypes)
		}
	}
	key := "cip_to_cip_vm_migration_costs"
	v, ok := index[key]
	if !ok {
		klog.V(2).Infof("scenario: %q absent, defaulting to zero", key)
		return out, nil
	}
	if len(v.vec3) != n {
		return nil, fmt.Errorf("field %q must have shape [%d][%d][%d], got %d top-level entries", key, n, n, numVMTypes, len(v.vec3))
	}
	for i, plane := range v.vec3 {
		if len(plane) != n {
			return nil, fmt.Errorf("field %q[%d] must have %d entries, got %d", key, i, n, len(plane))
		}
		for j, row := range plane {
			if len(row) != numVMTypes {
				return nil, fmt.Errorf("field %q[%d][%d] must have %d entries, got %d", key, i, j, numVMTypes, len(row))
			}
			for k, s := range row {
				f, err := parseFloat(s)
				if err != nil {
					return nil, fmt.Errorf("field %q[%d][%d][%d]: %w", key, i, j, k, err)
				}
				out[i][j][k] = f
			}
		}
	}
	return out, nil
}
