package services

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Mount codes for the two mechanical mount variants.
const (
	MountCodeMultiArm  = "SM-MOUNT-MULTI-ARM"
	MountCodeSingleArm = "SM-MOUNT-SINGLE-ARM"
)

// MaxMountClique is the largest pairwise azimuth separation (degrees) for
// sectors that can share one mount.
const MaxMountClique = 120.0

// MaxClusterSectors bounds the bitmask enumeration. Physical sites carry at
// most six sectors; anything above this limit is rejected.
const MaxClusterSectors = 8

// ErrTooManySectors is returned when the clique enumeration would exceed
// MaxClusterSectors.
var ErrTooManySectors = errors.New("too many sectors for mount clustering")

// MountGroup is a set of sectors sharing one physical mount.
type MountGroup struct {
	ID           string   `json:"id"`
	SectorIDs    []string `json:"sectorIds"`
	MountCode    string   `json:"mountCode"`
	SectorCount  int      `json:"sectorCount"`
	AntennaCount int      `json:"antennaCount"`
	LargeCount   int      `json:"largeCount"`
}

// AngularDistance is the circular distance between two azimuths, always in
// [0, 180].
func AngularDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	return math.Min(d, 360-d)
}

type clique struct {
	members []int // ascending sector indices
	span    float64
}

// ClusterMounts partitions sectors into mount groups.
//
// Valid cliques (≥2 sectors, every pair within MaxMountClique) are ranked by
// size descending, then span ascending, then by the lexicographically
// smallest ascending index list. Cliques are consumed greedily; sectors left
// over become singleton groups. The output covers every input sector exactly
// once.
//
// The search is exhaustive over subsets, so callers must keep inputs to
// MaxClusterSectors sectors; larger inputs return ErrTooManySectors rather
// than a partial grouping, and BuildSiteInput fails before any rule runs.
func ClusterMounts(sectors []Sector) ([]MountGroup, error) {
	n := len(sectors)
	if n == 0 {
		return nil, nil
	}
	if n > MaxClusterSectors {
		return nil, fmt.Errorf("cluster %d sectors: %w", n, ErrTooManySectors)
	}

	var cliques []clique
	for mask := 1; mask < 1<<n; mask++ {
		var members []int
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				members = append(members, i)
			}
		}
		if len(members) < 2 {
			continue
		}
		span, ok := cliqueSpan(sectors, members)
		if !ok {
			continue
		}
		cliques = append(cliques, clique{members: members, span: span})
	}

	sort.SliceStable(cliques, func(i, j int) bool {
		a, b := cliques[i], cliques[j]
		if len(a.members) != len(b.members) {
			return len(a.members) > len(b.members)
		}
		if a.span != b.span {
			return a.span < b.span
		}
		return lessIndices(a.members, b.members)
	})

	assigned := make([]bool, n)
	var groups []MountGroup
	for _, c := range cliques {
		free := true
		for _, i := range c.members {
			if assigned[i] {
				free = false
				break
			}
		}
		if !free {
			continue
		}
		for _, i := range c.members {
			assigned[i] = true
		}
		groups = append(groups, newMountGroup(len(groups)+1, sectors, c.members))
	}

	for i := 0; i < n; i++ {
		if !assigned[i] {
			groups = append(groups, newMountGroup(len(groups)+1, sectors, []int{i}))
		}
	}
	return groups, nil
}

// cliqueSpan returns the largest pairwise distance and whether every pair
// is within MaxMountClique.
func cliqueSpan(sectors []Sector, members []int) (float64, bool) {
	var span float64
	for x := 0; x < len(members); x++ {
		for y := x + 1; y < len(members); y++ {
			d := AngularDistance(sectors[members[x]].Azimuth, sectors[members[y]].Azimuth)
			if d > MaxMountClique {
				return 0, false
			}
			span = math.Max(span, d)
		}
	}
	return span, true
}

func lessIndices(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func newMountGroup(seq int, sectors []Sector, members []int) MountGroup {
	g := MountGroup{
		ID:          fmt.Sprintf("mount-%d", seq),
		SectorCount: len(members),
		MountCode:   MountCodeSingleArm,
	}
	if len(members) >= 2 {
		g.MountCode = MountCodeMultiArm
	}
	for _, i := range members {
		s := sectors[i]
		g.SectorIDs = append(g.SectorIDs, s.ID)
		g.AntennaCount += len(s.Antennas)
		if s.Size == SizeLarge {
			g.LargeCount++
		}
	}
	return g
}
