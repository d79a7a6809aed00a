package resolve

import (
	"reflect"
	"testing"

	"github.com/arving/kbmirror/internal/models"
	"github.com/arving/kbmirror/internal/progress"
)

func dir(id, parent, title string) models.TreeNode {
	return models.TreeNode{ID: id, ParentID: parent, Kind: models.KindDirectory, Title: title}
}

func leaf(id, parent, title, ref string) models.TreeNode {
	return models.TreeNode{ID: id, ParentID: parent, Kind: models.KindLeaf, Title: title, TargetRef: ref}
}

func TestTree_BasicDirectoryAndLeaf(t *testing.T) {
	nodes := []models.TreeNode{
		dir("A", "", "Intro"),
		leaf("B", "A", "Hello", "x1"),
	}
	r := Tree(nodes, nil)

	a, ok := r.Lookup("A")
	if !ok {
		t.Fatal("A not resolved")
	}
	if a.Path != "Intro" {
		t.Errorf("A path = %q, want %q", a.Path, "Intro")
	}

	b, ok := r.Lookup("B")
	if !ok {
		t.Fatal("B not resolved")
	}
	if b.Path != "Intro/Hello.md" {
		t.Errorf("B path = %q, want %q", b.Path, "Intro/Hello.md")
	}
	if !reflect.DeepEqual(b.IDSegments, []string{"A", "B"}) {
		t.Errorf("B id segments = %v", b.IDSegments)
	}
	if !reflect.DeepEqual(b.TitleSegments, []string{"Intro", "Hello.md"}) {
		t.Errorf("B title segments = %v", b.TitleSegments)
	}
}

func TestTree_NestedDirectories(t *testing.T) {
	nodes := []models.TreeNode{
		dir("A", "", "One"),
		dir("B", "A", "Two"),
		dir("C", "B", "Three"),
		leaf("D", "C", "Deep", "ref-d"),
	}
	r := Tree(nodes, nil)

	c, _ := r.Lookup("C")
	if c.Path != "One/Two/Three" {
		t.Errorf("C path = %q", c.Path)
	}
	d, _ := r.Lookup("D")
	if d.Path != "One/Two/Three/Deep.md" {
		t.Errorf("D path = %q", d.Path)
	}
	if len(d.IDSegments) != 4 {
		t.Errorf("D depth = %d, want 4", len(d.IDSegments))
	}
}

func TestTree_TitlesSanitized(t *testing.T) {
	nodes := []models.TreeNode{
		dir("A", "", "Q: What?"),
		leaf("B", "A", "A/B Testing", "r"),
	}
	r := Tree(nodes, nil)

	a, _ := r.Lookup("A")
	if a.Path != "Q_What_" {
		t.Errorf("A path = %q", a.Path)
	}
	b, _ := r.Lookup("B")
	if b.Path != "Q_What_/A_BTesting.md" {
		t.Errorf("B path = %q", b.Path)
	}
}

func TestTree_OrphanedChildBecomesRootLevel(t *testing.T) {
	// Parent after child violates the ordering invariant; the child must not
	// inherit a chain from a parent it cannot see yet.
	nodes := []models.TreeNode{
		leaf("B", "A", "Hello", "x1"),
		dir("A", "", "Intro"),
	}
	r := Tree(nodes, nil)

	b, ok := r.Lookup("B")
	if !ok {
		t.Fatal("B not resolved")
	}
	if b.Path != "Hello.md" {
		t.Errorf("orphaned leaf path = %q, want root-level %q", b.Path, "Hello.md")
	}
	if !reflect.DeepEqual(b.IDSegments, []string{"B"}) {
		t.Errorf("orphaned leaf id segments = %v", b.IDSegments)
	}
}

func TestTree_MalformedNodesIgnored(t *testing.T) {
	nodes := []models.TreeNode{
		dir("A", "", "Intro"),
		{ID: "X", ParentID: "A", Kind: models.KindUnknown, Title: "Mystery"},
		{ID: "Y", ParentID: "A", Kind: models.KindLeaf, Title: "No ref"},
	}
	r := Tree(nodes, nil)

	if _, ok := r.Lookup("X"); ok {
		t.Error("unknown-kind node without target ref should be ignored")
	}
	if _, ok := r.Lookup("Y"); ok {
		t.Error("leaf-kind node without target ref should be ignored")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestTree_UnknownKindWithRefIsLeaf(t *testing.T) {
	nodes := []models.TreeNode{
		{ID: "Z", Kind: models.KindUnknown, Title: "Page", TargetRef: "r9"},
	}
	r := Tree(nodes, nil)
	z, ok := r.Lookup("Z")
	if !ok {
		t.Fatal("node with target ref should resolve as a leaf")
	}
	if z.Path != "Page.md" {
		t.Errorf("path = %q", z.Path)
	}
}

func TestTree_PriorRecordsReplayedAndSkipped(t *testing.T) {
	nodes := []models.TreeNode{
		dir("A", "", "Intro"),
		leaf("B", "A", "Hello", "x1"),
	}
	prior := []progress.Record{{
		Entry: models.ResolvedEntry{
			ID:            "A",
			Path:          "Intro",
			TitleSegments: []string{"Intro"},
			IDSegments:    []string{"A"},
			SourceNode:    nodes[0],
		},
		Success: true,
	}}
	r := Tree(nodes, prior)

	if !r.Skipped("A") {
		t.Error("A should be in the skip set")
	}
	if r.Skipped("B") {
		t.Error("B should not be in the skip set")
	}

	// B resolves against A's replayed entry, not a re-derived one.
	b, ok := r.Lookup("B")
	if !ok {
		t.Fatal("B not resolved")
	}
	if b.Path != "Intro/Hello.md" {
		t.Errorf("B path = %q", b.Path)
	}
}

func TestTree_ResumeMatchesUninterruptedRun(t *testing.T) {
	nodes := []models.TreeNode{
		dir("A", "", "One"),
		dir("B", "A", "Two"),
		leaf("C", "B", "First", "r1"),
		leaf("D", "B", "Second", "r2"),
	}

	full := Tree(nodes, nil)

	// Simulate an interruption after the first two nodes: their entries were
	// persisted, the rest were not.
	var prior []progress.Record
	for _, id := range []string{"A", "B"} {
		e, _ := full.Lookup(id)
		prior = append(prior, progress.Record{Entry: e, Success: true})
	}
	resumed := Tree(nodes, prior)

	if full.Len() != resumed.Len() {
		t.Fatalf("entry count: full %d, resumed %d", full.Len(), resumed.Len())
	}
	for _, n := range nodes {
		fe, _ := full.Lookup(n.ID)
		re, _ := resumed.Lookup(n.ID)
		if !reflect.DeepEqual(fe, re) {
			t.Errorf("entry %s differs: full %+v, resumed %+v", n.ID, fe, re)
		}
	}
}

func TestTree_OrderedFollowsSequenceOrder(t *testing.T) {
	nodes := []models.TreeNode{
		dir("A", "", "One"),
		leaf("C", "A", "First", "r1"),
		leaf("D", "A", "Second", "r2"),
	}
	full := Tree(nodes, nil)

	// Resume where C failed previously: A and D are recorded, C is not.
	var prior []progress.Record
	for _, id := range []string{"A", "D"} {
		e, _ := full.Lookup(id)
		prior = append(prior, progress.Record{Entry: e, Success: true})
	}
	resumed := Tree(nodes, prior)

	var got []string
	for _, e := range resumed.Ordered() {
		got = append(got, e.ID)
	}
	want := []string{"A", "C", "D"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Ordered ids = %v, want %v", got, want)
	}
}

func TestTree_SharedParentChainNotAliased(t *testing.T) {
	nodes := []models.TreeNode{
		dir("A", "", "Root"),
		leaf("B", "A", "One", "r1"),
		leaf("C", "A", "Two", "r2"),
	}
	r := Tree(nodes, nil)

	b, _ := r.Lookup("B")
	c, _ := r.Lookup("C")
	if b.TitleSegments[1] != "One.md" || c.TitleSegments[1] != "Two.md" {
		t.Errorf("sibling segment chains alias each other: %v, %v", b.TitleSegments, c.TitleSegments)
	}
}
