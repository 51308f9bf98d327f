/*
Package shape describes the structure of serialized values and derives migrations between them.

A Type is an immutable node describing the shape of a value. It reads and writes values through a
tree adapter, compares structurally and produces default values. Types are a closed set of kinds:
primitives, unit, remainder, products, sums, fields, optional fields, named values, lists, compound
lists, tagged choices and recursion points. All types are interned, so structurally identical
shapes share one node.

A Template is an unapplied type constructor parametrized over a Family, a function from index to
type. A RecursiveFamily ties the knot: recursion points inside the family refer back to the family
by index and resolve to one stable unfolded type per index.

A Rule rewrites types. RewriteAll walks a type graph bottom-up, applies the rule at every node and
lifts the rule results through the enclosing nodes. Each Result carries the old type, the new type
and an optic converting old values to new values. Unchanged nodes produce no-operation results
that never grow optic chains. Recursive families are rewritten once per pass.

	player := shape.And(shape.Field("name", shape.String), shape.Field("score", shape.Int))
	res, err := shape.RewriteAll(player, fix.RenameField("score", "points"), true, true)
	out, err := res.Convert(tree.Native, map[string]interface{}{"name": "a", "score": 5.0})
*/
package shape
