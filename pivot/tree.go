// Package pivot arranges flat pivot results into an expandable tree of row groups, with every
// group's values rolled up from its leaves.
package pivot

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"hermannm.dev/widgetengine/aggregate"
)

// TokenSeparator splits a row-key token into its sort value and display label: "01|||Jan".
const TokenSeparator = "|||"

func EncodeToken(sortValue string, display string) string {
	return sortValue + TokenSeparator + display
}

// DecodeToken splits an encoded token. Tokens without a separator sort and display as is.
func DecodeToken(token string) (sortValue string, display string) {
	if sortValue, display, found := strings.Cut(token, TokenSeparator); found {
		return sortValue, display
	}
	return token, token
}

// Values maps column key -> measure key -> value.
type Values map[string]map[string]float64

func (values Values) add(other Values) {
	for columnKey, measures := range other {
		target, ok := values[columnKey]
		if !ok {
			target = make(map[string]float64, len(measures))
			values[columnKey] = target
		}
		for measureKey, number := range measures {
			target[measureKey] += number
		}
	}
}

type Node struct {
	// Key is the path of raw tokens from the root, joined like pivot row keys: "EU > 01|||Jan".
	Key    string
	Token  string
	Label  string
	Depth  int
	Values Values
	IsLeaf bool

	children map[string]*Node
	// Values given directly by the pivot data, before rolling up children.
	direct Values
}

// Children returns the child nodes ordered by their raw token, so sort prefixes decide order.
func (node *Node) Children() []*Node {
	children := make([]*Node, 0, len(node.children))
	for _, child := range node.children {
		children = append(children, child)
	}
	slices.SortFunc(children, func(a *Node, b *Node) int {
		return strings.Compare(a.Token, b.Token)
	})
	return children
}

func (node *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key      string  `json:"key"`
		Label    string  `json:"label"`
		Depth    int     `json:"depth"`
		Values   Values  `json:"values"`
		IsLeaf   bool    `json:"isLeaf"`
		Children []*Node `json:"children,omitempty"`
	}{node.Key, node.Label, node.Depth, node.Values, node.IsLeaf, node.Children()})
}

type Tree struct {
	root       *Node
	ColumnKeys []string           `json:"columnKeys"`
	GrandTotal map[string]float64 `json:"grandTotal"`
}

// Build inserts every row key of a pivot result into a trie, one level per row field. Leaves take
// their values from the pivot data, and every other node the sum of its children.
func Build(result aggregate.PivotResult) *Tree {
	tree := &Tree{
		root:       newNode("", "", -1),
		ColumnKeys: result.ColumnKeys,
		GrandTotal: result.GrandTotal,
	}

	for _, rowKey := range result.RowKeys {
		node := tree.root
		for _, token := range strings.Split(rowKey, aggregate.KeySeparator) {
			child, ok := node.children[token]
			if !ok {
				key := token
				if node != tree.root {
					key = node.Key + aggregate.KeySeparator + token
				}
				child = newNode(key, token, node.Depth+1)
				node.children[token] = child
			}
			node = child
		}
		node.direct.add(finiteValues(result.Data[rowKey]))
	}

	rollUp(tree.root)
	return tree
}

func newNode(key string, token string, depth int) *Node {
	_, label := DecodeToken(token)
	return &Node{
		Key:      key,
		Token:    token,
		Label:    label,
		Depth:    depth,
		Values:   make(Values),
		children: make(map[string]*Node),
		direct:   make(Values),
	}
}

// finiteValues copies cell values, entering non-finite numbers as 0 so they cannot poison totals.
func finiteValues(cells map[string]map[string]float64) Values {
	values := make(Values, len(cells))
	for columnKey, measures := range cells {
		copied := make(map[string]float64, len(measures))
		for measureKey, number := range measures {
			if math.IsNaN(number) || math.IsInf(number, 0) {
				number = 0
			}
			copied[measureKey] = number
		}
		values[columnKey] = copied
	}
	return values
}

func rollUp(node *Node) {
	node.IsLeaf = len(node.children) == 0
	node.Values = make(Values)
	node.Values.add(node.direct)
	for _, child := range node.children {
		rollUp(child)
		node.Values.add(child.Values)
	}
}

// Roots returns the top-level row groups in order.
func (tree *Tree) Roots() []*Node {
	return tree.root.Children()
}

// Find looks up a node by its key.
func (tree *Tree) Find(key string) (*Node, bool) {
	node := tree.root
	for _, token := range strings.Split(key, aggregate.KeySeparator) {
		child, ok := node.children[token]
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// Walk visits every node depth-first in display order.
func (tree *Tree) Walk(visit func(node *Node)) {
	var walk func(node *Node)
	walk = func(node *Node) {
		for _, child := range node.Children() {
			visit(child)
			walk(child)
		}
	}
	walk(tree.root)
}

// Flatten lists the nodes to render, depth-first in display order. A node is included only when
// all of its ancestors are expanded, so collapsing a node hides its whole subtree.
func (tree *Tree) Flatten(expanded ExpandedSet) []*Node {
	var rendered []*Node

	var flatten func(node *Node)
	flatten = func(node *Node) {
		for _, child := range node.Children() {
			rendered = append(rendered, child)
			if expanded.Contains(child.Key) {
				flatten(child)
			}
		}
	}
	flatten(tree.root)

	return rendered
}

// Validate checks that every group's values equal the sum of its children's (plus any values
// given to it directly), within floating-point tolerance.
func (tree *Tree) Validate() error {
	var validate func(node *Node) error
	validate = func(node *Node) error {
		if node.IsLeaf {
			return nil
		}

		expected := make(Values)
		expected.add(node.direct)
		for _, child := range node.children {
			expected.add(child.Values)
			if err := validate(child); err != nil {
				return err
			}
		}

		for columnKey, measures := range expected {
			for measureKey, sum := range measures {
				actual := node.Values[columnKey][measureKey]
				if math.Abs(actual-sum) > 1e-9*math.Max(1, math.Abs(sum)) {
					return fmt.Errorf(
						"node '%s' has %v for column '%s' measure '%s', but its children sum to %v",
						node.Key, actual, columnKey, measureKey, sum,
					)
				}
			}
		}
		return nil
	}
	return validate(tree.root)
}

func (tree *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Roots      []*Node            `json:"roots"`
		ColumnKeys []string           `json:"columnKeys"`
		GrandTotal map[string]float64 `json:"grandTotal"`
	}{tree.Roots(), tree.ColumnKeys, tree.GrandTotal})
}
