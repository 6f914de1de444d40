// Package types provides the shared data model used across cipfed packages:
// players (CIPs), PM/VM types, the scenario a run is computed against, and
// the allocation/coalition-info records the core produces.
package types

import "fmt"

// PlayerID identifies a Cloud Infrastructure Provider. Players are indexed
// in [0, N) and immutable over a run.
type PlayerID int

// CoalitionID is the bitmask identifier of a non-empty subset of players:
// id = sum(2^p for p in S). The singleton {p} has id 2^p; the grand
// coalition of N players has id 2^N - 1.
type CoalitionID uint64

// SingletonID returns the coalition id of the singleton coalition {p}.
func SingletonID(p PlayerID) CoalitionID {
	return CoalitionID(1) << uint(p)
}

// GrandCoalitionID returns the coalition id of the grand coalition of n players.
func GrandCoalitionID(n int) CoalitionID {
	return CoalitionID(1)<<uint(n) - 1
}

// Members returns the sorted player indices belonging to id, assuming n players total.
func (id CoalitionID) Members(n int) []PlayerID {
	members := make([]PlayerID, 0, n)
	for p := 0; p < n; p++ {
		if id&(CoalitionID(1)<<uint(p)) != 0 {
			members = append(members, PlayerID(p))
		}
	}
	return members
}

// Contains reports whether player p belongs to coalition id.
func (id CoalitionID) Contains(p PlayerID) bool {
	return id&(CoalitionID(1)<<uint(p)) != 0
}

// Size returns the number of players in the coalition (popcount).
func (id CoalitionID) Size() int {
	n := 0
	for v := uint64(id); v != 0; v &= v - 1 {
		n++
	}
	return n
}

// Union returns the coalition id of the union of two (possibly overlapping) coalitions.
func (id CoalitionID) Union(other CoalitionID) CoalitionID {
	return id | other
}

// IsSubsetOf reports whether id's players are all members of other.
func (id CoalitionID) IsSubsetOf(other CoalitionID) bool {
	return id&other == id
}

// PMType describes a physical-machine type's power profile.
type PMType struct {
	Name   string
	PMin   float64 // watts, idle/minimum power when powered on
	PMax   float64 // watts, fully utilized power
}

// VMType describes a virtual-machine type's per-PM-type resource shares.
type VMType struct {
	Name string
	// CPU[t] and RAM[t] are the fractional CPU/RAM share ([0,1]) a VM of
	// this type consumes on a PM of type t.
	CPU []float64
	RAM []float64
}

// PM is one physical machine instance owned by a player.
type PM struct {
	Owner   PlayerID
	Type    int  // index into Scenario.PMTypes
	Initial bool // initial on/off state (o(h) in spec.md §4.A)
}

// VM is one virtual machine instance hosted/requested by a player.
type VM struct {
	Owner PlayerID
	Type  int // index into Scenario.VMTypes
}

// Scenario is the full static input to a run: players, resource specs, and
// the per-player workload/prices/costs.
type Scenario struct {
	NumCIPs    int
	PMTypes    []PMType
	VMTypes    []VMType

	// NumPMs[p][t] and NumVMs[p][v] are counts, per spec.md §6.
	NumPMs []map[int]int
	NumVMs []map[int]int

	// PMPowerStates[p] holds the initial on/off state of every individual
	// PM owned by p, grouped by type in the order PMTypes appears (this
	// matches §4.B step 2's "all PMs of p_0 first grouped by type"
	// concatenation rule).
	PMPowerStates [][]bool

	Revenue          [][]float64 // Revenue[p][v], $/h/VM
	ElectricityPrice []float64   // $/kWh, per player
	SwitchOnCost     []map[int]float64
	SwitchOffCost    []map[int]float64

	// Migration[src][dst][v] is the $ cost of migrating one VM of type v
	// from player src to player dst. Always a full N x N x V table.
	Migration [][][]float64
}

// Validate checks the invariants spec.md §3/§6 require of a fully parsed scenario.
func (s *Scenario) Validate() error {
	if s.NumCIPs <= 0 {
		return fmt.Errorf("num_cips must be positive, got %d", s.NumCIPs)
	}
	if len(s.PMTypes) == 0 {
		return fmt.Errorf("num_pm_types must be positive")
	}
	if len(s.VMTypes) == 0 {
		return fmt.Errorf("num_vm_types must be positive")
	}
	n, t, v := s.NumCIPs, len(s.PMTypes), len(s.VMTypes)
	if len(s.NumPMs) != n || len(s.NumVMs) != n {
		return fmt.Errorf("cip_num_pms/cip_num_vms must have %d rows", n)
	}
	if len(s.Revenue) != n {
		return fmt.Errorf("cip_revenues must have %d rows", n)
	}
	for p, row := range s.Revenue {
		if len(row) != v {
			return fmt.Errorf("cip_revenues[%d] must have %d columns, got %d", p, v, len(row))
		}
	}
	if len(s.ElectricityPrice) != n {
		return fmt.Errorf("cip_electricity_costs must have %d entries", n)
	}
	if len(s.Migration) != n {
		return fmt.Errorf("cip_to_cip_vm_migration_costs must have shape [%d][%d][%d]", n, n, v)
	}
	for i, row := range s.Migration {
		if len(row) != n {
			return fmt.Errorf("cip_to_cip_vm_migration_costs[%d] must have %d entries, got %d", i, n, len(row))
		}
		for j, col := range row {
			if len(col) != v {
				return fmt.Errorf("cip_to_cip_vm_migration_costs[%d][%d] must have %d entries, got %d", i, j, v, len(col))
			}
		}
	}
	for _, vt := range s.VMTypes {
		if len(vt.CPU) != t || len(vt.RAM) != t {
			return fmt.Errorf("vm_spec_cpus/vm_spec_rams rows must have %d entries", t)
		}
	}
	return nil
}

// CoalitionPMs returns the ordered PM array for coalition id: all PMs of
// its lowest-indexed member first (grouped by type), then the next member,
// etc., per spec.md §4.B step 2.
func (s *Scenario) CoalitionPMs(id CoalitionID) []PM {
	var pms []PM
	for p := 0; p < s.NumCIPs; p++ {
		if !id.Contains(PlayerID(p)) {
			continue
		}
		idx := 0
		for t := range s.PMTypes {
			count := s.NumPMs[p][t]
			for i := 0; i < count; i++ {
				initial := false
				if idx < len(s.PMPowerStates[p]) {
					initial = s.PMPowerStates[p][idx]
				}
				pms = append(pms, PM{Owner: PlayerID(p), Type: t, Initial: initial})
				idx++
			}
		}
	}
	return pms
}

// CoalitionVMs returns the ordered VM array for coalition id, in the same
// member order as CoalitionPMs.
func (s *Scenario) CoalitionVMs(id CoalitionID) []VM {
	var vms []VM
	for p := 0; p < s.NumCIPs; p++ {
		if !id.Contains(PlayerID(p)) {
			continue
		}
		for v := range s.VMTypes {
			count := s.NumVMs[p][v]
			for i := 0; i < count; i++ {
				vms = append(vms, VM{Owner: PlayerID(p), Type: v})
			}
		}
	}
	return vms
}

// Profit returns profit(S) = sum of revenues of members' hosted VMs, per
// spec.md §4.B step 4 - independent of the chosen placement.
func (s *Scenario) Profit(id CoalitionID) float64 {
	total := 0.0
	for p := 0; p < s.NumCIPs; p++ {
		if !id.Contains(PlayerID(p)) {
			continue
		}
		for v := range s.VMTypes {
			total += s.Revenue[p][v] * float64(s.NumVMs[p][v])
		}
	}
	return total
}
