package tree

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

func drawForest(t *rapid.T, depth int, prefix string) []*Node[label] {
	limit := 4
	if depth >= 3 {
		limit = 0
	}
	n := rapid.IntRange(0, limit).Draw(t, prefix+"n")
	nodes := make([]*Node[label], n)
	for i := range nodes {
		name := fmt.Sprintf("%s%d", prefix, i)
		nodes[i] = &Node[label]{
			Value:    label(name),
			Children: drawForest(t, depth+1, name+"."),
			Expanded: rapid.Bool().Draw(t, name+"/expanded"),
		}
	}
	return nodes
}

func countSubtree(n *Node[label]) int {
	if !n.Expanded {
		return 0
	}
	total := 0
	for _, c := range n.Children {
		total += 1 + countSubtree(c)
	}
	return total
}

func TestPropertyVisibleCountMatchesRows(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := New(drawForest(t, 0, ""))
		n := m.VisibleCount()

		walked := 0
		for range Visible(m.Roots()) {
			walked++
		}
		if walked != n {
			t.Fatalf("traversal yielded %d, count says %d", walked, n)
		}
		if rows := len(m.Rows()); rows != n {
			t.Fatalf("rendered %d rows for %d visible nodes", rows, n)
		}
	})
}

func TestPropertyCollapseRemovesVisibleDescendants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := New(drawForest(t, 0, ""))
		if m.VisibleCount() == 0 {
			return
		}
		m.Select(rapid.IntRange(0, m.VisibleCount()-1).Draw(t, "row"))
		node, _ := m.Selected()
		if !node.Expanded {
			node.Expanded = true
		}

		before := m.VisibleCount()
		hidden := countSubtree(node)
		m.ToggleSelected()
		if after := m.VisibleCount(); after != before-hidden {
			t.Fatalf("collapse: %d -> %d, expected to hide %d", before, after, hidden)
		}
	})
}

func TestPropertySelectionStaysInRange(t *testing.T) {
	ops := []string{"up", "down", "pgup", "pgdown", "toggle", "click", "left", "expand", "collapse", "top", "bottom"}
	rapid.Check(t, func(t *rapid.T) {
		m := New(drawForest(t, 0, ""))
		m.SetSize(40, rapid.IntRange(0, 6).Draw(t, "height"))
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.SampledFrom(ops).Draw(t, "op") {
			case "up":
				m.MoveUp()
			case "down":
				m.MoveDown()
			case "pgup":
				m.PageUp()
			case "pgdown":
				m.PageDown()
			case "toggle":
				m.ToggleSelected()
			case "click":
				m.ClickRow(rapid.IntRange(-2, 30).Draw(t, "row"))
			case "left":
				m.CollapseOrJumpToParent()
			case "expand":
				m.ExpandAll()
			case "collapse":
				m.CollapseAll()
			case "top":
				m.JumpToTop()
			case "bottom":
				m.JumpToBottom()
			}
			m.View()

			n := m.VisibleCount()
			sel := m.SelectedIndex()
			if n == 0 && sel != 0 {
				t.Fatalf("empty forest selection = %d", sel)
			}
			if n > 0 && (sel < 0 || sel >= n) {
				t.Fatalf("selection %d out of [0,%d)", sel, n)
			}
			if _, ok := m.Selected(); ok != (n > 0) {
				t.Fatalf("Selected ok=%v with %d visible", ok, n)
			}
		}
	})
}

func TestPropertyDoubleToggleIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := New(drawForest(t, 0, ""))
		if m.VisibleCount() == 0 {
			return
		}
		m.Select(rapid.IntRange(0, m.VisibleCount()-1).Draw(t, "row"))
		before := m.Fragments().String()
		m.ToggleSelected()
		m.ToggleSelected()
		if after := m.Fragments().String(); after != before {
			t.Fatalf("render changed:\n%s\n---\n%s", before, after)
		}
	})
}

func TestPropertyClickEqualsSelectThenToggle(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := drawForest(t, 0, "")
		row := rapid.IntRange(0, 20).Draw(t, "row")

		clicked := New(cloneForest(seed))
		clicked.ClickRow(row)

		stepped := New(cloneForest(seed))
		stepped.Select(row)
		stepped.ToggleSelected()

		if clicked.SelectedIndex() != stepped.SelectedIndex() {
			t.Fatalf("selection %d vs %d", clicked.SelectedIndex(), stepped.SelectedIndex())
		}
		if clicked.Fragments().String() != stepped.Fragments().String() {
			t.Fatal("click and select+toggle rendered differently")
		}
	})
}

func TestPropertyMovesAtEdgesAreNoops(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := New(drawForest(t, 0, ""))
		m.MoveUp()
		if m.SelectedIndex() != 0 {
			t.Fatalf("MoveUp at top moved to %d", m.SelectedIndex())
		}
		m.JumpToBottom()
		last := m.SelectedIndex()
		m.MoveDown()
		if m.SelectedIndex() != last {
			t.Fatalf("MoveDown at bottom moved %d -> %d", last, m.SelectedIndex())
		}
	})
}

func cloneForest(nodes []*Node[label]) []*Node[label] {
	out := make([]*Node[label], len(nodes))
	for i, n := range nodes {
		out[i] = &Node[label]{Value: n.Value, Children: cloneForest(n.Children), Expanded: n.Expanded}
	}
	return out
}
