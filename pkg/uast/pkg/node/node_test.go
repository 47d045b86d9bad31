package node //nolint:testpackage // Tests need access to internal types.

import "testing"

func sampleTree() *Node {
	leaf := &Node{Type: UASTIdentifier, Token: "x", Roles: []Role{RoleName}}
	body := &Node{Type: UASTBlock, Children: []*Node{leaf}}
	fn := &Node{Type: UASTFunctionDecl, Token: "run", Roles: []Role{RoleFunction, RoleExported}, Children: []*Node{body}}
	root := &Node{Type: UASTFile, Children: []*Node{fn}}

	return root
}

func TestNode_Find_MatchesPredicate(t *testing.T) {
	t.Parallel()

	root := sampleTree()

	found := root.Find(func(n *Node) bool { return n.Type == UASTIdentifier })
	if len(found) != 1 || found[0].Token != "x" {
		t.Fatalf("expected one Identifier node, got %v", found)
	}

	all := root.Find(func(*Node) bool { return true })
	if len(all) != 4 {
		t.Fatalf("expected 4 nodes total, got %d", len(all))
	}
}

func TestNode_Find_NilReceiverReturnsNil(t *testing.T) {
	t.Parallel()

	var n *Node

	if got := n.Find(func(*Node) bool { return true }); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestNode_AddChild_RemoveChild_ReplaceChild(t *testing.T) {
	t.Parallel()

	parent := &Node{Type: UASTBlock}
	a := &Node{Type: UASTReturn}
	b := &Node{Type: UASTBreak}

	parent.AddChild(a)
	parent.AddChild(b)

	if len(parent.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(parent.Children))
	}

	c := &Node{Type: UASTContinue}
	if !parent.ReplaceChild(a, c) {
		t.Fatal("expected ReplaceChild to find and replace a")
	}

	if parent.Children[0] != c {
		t.Fatalf("expected first child replaced with c, got %v", parent.Children[0])
	}

	if !parent.RemoveChild(b) {
		t.Fatal("expected RemoveChild to find and remove b")
	}

	if len(parent.Children) != 1 || parent.Children[0] != c {
		t.Fatalf("expected only c to remain, got %v", parent.Children)
	}

	if parent.RemoveChild(b) {
		t.Fatal("expected RemoveChild of already-removed node to return false")
	}
}

func TestNode_VisitPreOrder_VisitsRootFirst(t *testing.T) {
	t.Parallel()

	root := sampleTree()

	var types []Type

	root.VisitPreOrder(func(n *Node) { types = append(types, n.Type) })

	if len(types) != 4 || types[0] != UASTFile {
		t.Fatalf("expected pre-order starting at File, got %v", types)
	}
}

func TestNode_VisitPostOrder_VisitsRootLast(t *testing.T) {
	t.Parallel()

	root := sampleTree()

	var types []Type

	root.VisitPostOrder(func(n *Node) { types = append(types, n.Type) })

	if len(types) != 4 || types[len(types)-1] != UASTFile {
		t.Fatalf("expected post-order ending at File, got %v", types)
	}
}

func TestNode_Ancestors(t *testing.T) {
	t.Parallel()

	root := sampleTree()
	fn := root.Children[0]
	body := fn.Children[0]
	leaf := body.Children[0]

	ancestors := root.Ancestors(leaf)
	if len(ancestors) != 3 || ancestors[0] != root || ancestors[1] != fn || ancestors[2] != body {
		t.Fatalf("expected [root fn body], got %v", ancestors)
	}

	if got := root.Ancestors(&Node{Type: UASTSynthetic}); got != nil {
		t.Fatalf("expected nil for a node not in the tree, got %v", got)
	}
}

func TestNode_Ancestors_NilReceiverOrTarget(t *testing.T) {
	t.Parallel()

	var n *Node

	if got := n.Ancestors(&Node{}); got != nil {
		t.Fatalf("expected nil for nil receiver, got %v", got)
	}

	root := sampleTree()
	if got := root.Ancestors(nil); got != nil {
		t.Fatalf("expected nil for nil target, got %v", got)
	}
}

func TestNode_HasAnyRole_HasAllRoles(t *testing.T) {
	t.Parallel()

	fn := &Node{Roles: []Role{RoleFunction, RoleExported}}

	if !fn.HasAnyRole(RoleExported, RolePrivate) {
		t.Fatal("expected HasAnyRole to match RoleExported")
	}

	if fn.HasAnyRole(RolePrivate) {
		t.Fatal("expected HasAnyRole to reject an absent role")
	}

	if !fn.HasAllRoles(RoleFunction, RoleExported) {
		t.Fatal("expected HasAllRoles to match both roles")
	}

	if fn.HasAllRoles(RoleFunction, RolePrivate) {
		t.Fatal("expected HasAllRoles to reject a partial match")
	}

	empty := &Node{}
	if empty.HasAnyRole(RoleFunction) || empty.HasAllRoles(RoleFunction) {
		t.Fatal("expected a roleless node to match neither")
	}
}

func TestNode_HasAnyType(t *testing.T) {
	t.Parallel()

	n := &Node{Type: UASTMethod}

	if !n.HasAnyType(UASTFunctionDecl, UASTMethod) {
		t.Fatal("expected HasAnyType to match Method")
	}

	if n.HasAnyType(UASTClass) {
		t.Fatal("expected HasAnyType to reject Class")
	}
}

func TestNode_TransformInPlace_MutatesTree(t *testing.T) {
	t.Parallel()

	root := sampleTree()

	root.TransformInPlace(func(n *Node) bool {
		if n.Type == UASTIdentifier {
			n.Token = "renamed"
		}

		return true
	})

	leaf := root.Children[0].Children[0].Children[0]
	if leaf.Token != "renamed" {
		t.Fatalf("expected leaf token renamed, got %q", leaf.Token)
	}
}

func TestNode_Transform_ReturnsNewTree(t *testing.T) {
	t.Parallel()

	root := sampleTree()

	renamed := root.Transform(func(n *Node) *Node {
		cp := *n
		if cp.Type == UASTIdentifier {
			cp.Token = "renamed"
		}

		return &cp
	})

	newLeaf := renamed.Children[0].Children[0].Children[0]
	if newLeaf.Token != "renamed" {
		t.Fatalf("expected new tree's leaf renamed, got %q", newLeaf.Token)
	}

	oldLeaf := root.Children[0].Children[0].Children[0]
	if oldLeaf.Token != "x" {
		t.Fatalf("expected original tree untouched, got %q", oldLeaf.Token)
	}
}

func TestNode_Transform_NilReceiverReturnsNil(t *testing.T) {
	t.Parallel()

	var n *Node

	if got := n.Transform(func(in *Node) *Node { return in }); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestNode_ToMap_IncludesChildrenAndPosition(t *testing.T) {
	t.Parallel()

	leaf := &Node{
		Type:  UASTIdentifier,
		Token: "x",
		Roles: []Role{RoleName},
		Pos:   &Positions{StartLine: 1, EndLine: 1},
	}
	root := &Node{Type: UASTFile, Children: []*Node{leaf}}

	m := root.ToMap()

	if m["type"] != UASTFile {
		t.Fatalf("expected type File, got %v", m["type"])
	}

	children, ok := m["children"].([]map[string]any)
	if !ok || len(children) != 1 {
		t.Fatalf("expected one child map, got %v", m["children"])
	}

	if children[0]["token"] != "x" {
		t.Fatalf("expected child token x, got %v", children[0]["token"])
	}

	pos, ok := children[0]["pos"].(map[string]any)
	if !ok || pos["start_line"] != uint(1) {
		t.Fatalf("expected child pos start_line 1, got %v", children[0]["pos"])
	}
}

func TestNode_ToMap_NilReceiverReturnsNil(t *testing.T) {
	t.Parallel()

	var n *Node

	if got := n.ToMap(); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestNode_String_NilAndPopulated(t *testing.T) {
	t.Parallel()

	var nilNode *Node

	if got := nilNode.String(); got != "nil" {
		t.Fatalf("expected %q, got %q", "nil", got)
	}

	n := &Node{Type: UASTCall, Token: "f", Roles: []Role{RoleCall}, Children: []*Node{{Type: UASTIdentifier}}}

	got := n.String()
	if got == "" {
		t.Fatal("expected non-empty string representation")
	}
}

func TestNode_AssignStableIDs_DeterministicAndDistinct(t *testing.T) {
	t.Parallel()

	a := sampleTree()
	b := sampleTree()

	a.AssignStableIDs()
	b.AssignStableIDs()

	if a.ID != b.ID {
		t.Fatal("expected identical trees to receive identical root ids")
	}

	fn := a.Children[0]
	if fn.ID == a.ID {
		t.Fatal("expected distinct nodes to receive distinct ids")
	}

	leaf := a.Children[0].Children[0].Children[0]
	if leaf.ID == "" {
		t.Fatal("expected leaf id to be assigned")
	}
}

func TestNode_AssignStableIDs_NilReceiverNoPanic(t *testing.T) {
	t.Parallel()

	var n *Node

	n.AssignStableIDs()
}

func TestNewBuilder_FluentConstruction(t *testing.T) {
	t.Parallel()

	pos := &Positions{StartLine: 1, EndLine: 2}
	n := NewBuilder().
		WithID("id-1").
		WithType(UASTMethod).
		WithToken("Run").
		WithRoles([]Role{RoleFunction}).
		WithPosition(pos).
		WithProps(map[string]string{"visibility": "public"}).
		Build()

	if n.ID != "id-1" || n.Type != UASTMethod || n.Token != "Run" {
		t.Fatalf("unexpected node: %+v", n)
	}

	if n.Pos != pos {
		t.Fatal("expected Pos to be the provided position")
	}

	if n.Props["visibility"] != "public" {
		t.Fatalf("expected props to carry visibility, got %v", n.Props)
	}

	if n.Children == nil || len(n.Children) != 0 {
		t.Fatalf("expected Build to initialize an empty Children slice, got %v", n.Children)
	}
}

func TestNew_InitializesAllFields(t *testing.T) {
	t.Parallel()

	pos := &Positions{StartLine: 3}
	n := New("id-2", UASTVariable, "count", []Role{RoleVariable}, pos, nil)

	if n.ID != "id-2" || n.Type != UASTVariable || n.Token != "count" {
		t.Fatalf("unexpected node: %+v", n)
	}

	if len(n.Roles) != 1 || n.Roles[0] != RoleVariable {
		t.Fatalf("expected RoleVariable, got %v", n.Roles)
	}
}

func TestNewNodeWithToken_AndNewLiteralNode(t *testing.T) {
	t.Parallel()

	n := NewNodeWithToken(UASTIdentifier, "y")
	if n.Type != UASTIdentifier || n.Token != "y" {
		t.Fatalf("unexpected node: %+v", n)
	}

	lit := NewLiteralNode("42")
	if lit.Type != "Literal" || lit.Token != "42" {
		t.Fatalf("unexpected literal node: %+v", lit)
	}
}

func TestNode_Release_ClearsFields(t *testing.T) {
	t.Parallel()

	n := NewNodeWithToken(UASTIdentifier, "z")
	n.Roles = []Role{RoleName}
	n.Children = []*Node{{}}

	n.Release()

	if n.Type != "" || n.Token != "" || n.Roles != nil || n.Children != nil {
		t.Fatalf("expected Release to clear all fields, got %+v", n)
	}
}
