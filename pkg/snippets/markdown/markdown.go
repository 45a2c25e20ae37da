// Package markdown provides the built-in snippet set for markdown buffers:
// code fences, heading shortcuts, emphasis wrappers and link/image templates.
package markdown

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/snipkit/snipkit/pkg/registry"
	"github.com/snipkit/snipkit/pkg/snippet/node"
	"github.com/snipkit/snipkit/pkg/trigger"
)

// Filetype is the registry filetype these definitions attach to.
const Filetype = "markdown"

// fenceLanguages are the alternatives offered by the code-fence choice, in
// cycle order.
var fenceLanguages = []string{"go", "python", "bash", "lua", "json"}

// Register adds every markdown definition to a registry.
func Register(r *registry.Registry) {
	r.Add(Filetype, Definitions()...)
}

// Definitions builds the markdown snippet set.
func Definitions() []*registry.Definition {
	defs := []*registry.Definition{
		fence(),
		bold(),
		italic(),
		strikethrough(),
		link(),
		image(),
		table(),
		rule(),
	}
	defs = append(defs, headings()...)
	return defs
}

// fence is a fenced code block. Cycling the language keeps the body: the body
// lives in a restore slot, so it survives the choice switch.
func fence() *registry.Definition {
	alts := make([]*node.Node, len(fenceLanguages))
	for i, lang := range fenceLanguages {
		alts[i] = node.Text(lang)
	}

	opts := trigger.NewOpts("cb")
	opts.Name = "code block"
	opts.Description = "fenced code block with language choice"

	return &registry.Definition{
		Opts: opts,
		Template: node.MustCompile(
			node.Text("```"),
			node.Choice(1, alts...),
			node.Text("", ""),
			node.Restore(2, "md.fence.body", node.Insert(1)),
			node.Text("", "```"),
		),
	}
}

// headings builds h1 through h6. They only expand, and are only listed, at
// the start of a line.
func headings() []*registry.Definition {
	atLineStart := func(lineBefore, matched string, _ []string) bool {
		prefix := lineBefore[:len(lineBefore)-len(matched)]
		return strings.TrimSpace(prefix) == ""
	}
	showAtLineStart := func(lineBefore string) bool {
		return strings.TrimSpace(lineBefore) == "" || !strings.Contains(lineBefore, " ")
	}

	defs := make([]*registry.Definition, 0, 6)
	for level := 1; level <= 6; level++ {
		opts := trigger.NewOpts("h" + strconv.Itoa(level))
		opts.Name = fmt.Sprintf("heading %d", level)
		opts.Description = fmt.Sprintf("level %d heading", level)

		defs = append(defs, &registry.Definition{
			Opts: opts,
			Template: node.MustCompile(
				node.Text(strings.Repeat("#", level)+" "),
				node.Insert(1, "heading"),
			),
			Condition:     atLineStart,
			ShowCondition: showAtLineStart,
		})
	}
	return defs
}

func wrapper(trig, name, mark string) *registry.Definition {
	opts := trigger.NewOpts(trig)
	opts.Name = name
	opts.Description = name + " emphasis"

	return &registry.Definition{
		Opts: opts,
		Template: node.MustCompile(
			node.Text(mark),
			node.Insert(1, "text"),
			node.Text(mark),
		),
	}
}

func bold() *registry.Definition          { return wrapper("bd", "bold", "**") }
func italic() *registry.Definition        { return wrapper("it", "italic", "*") }
func strikethrough() *registry.Definition { return wrapper("st", "strikethrough", "~~") }

// link is an inline link. The URL placeholder mirrors nothing; the first stop
// is the visible text.
func link() *registry.Definition {
	opts := trigger.NewOpts("ln")
	opts.Name = "link"
	opts.Description = "inline link"

	return &registry.Definition{
		Opts: opts,
		Template: node.MustCompile(
			node.Text("["),
			node.Insert(1, "text"),
			node.Text("]("),
			node.Insert(2, "https://"),
			node.Text(")"),
		),
	}
}

func image() *registry.Definition {
	opts := trigger.NewOpts("img")
	opts.Name = "image"
	opts.Description = "inline image"

	return &registry.Definition{
		Opts: opts,
		Template: node.MustCompile(
			node.Text("!["),
			node.Insert(1, "alt"),
			node.Text("]("),
			node.Insert(2, "url"),
			node.Text(")"),
		),
	}
}

// table generates a header row and separator from the column count typed into
// the first stop. The generated row re-expands whenever the count changes.
func table() *registry.Definition {
	opts := trigger.NewOpts("tbl")
	opts.Name = "table"
	opts.Description = "table skeleton from a column count"

	gen := func(ctx node.GenContext) (*node.Node, any, error) {
		cols := 2
		if len(ctx.Deps) > 0 && len(ctx.Deps[0]) > 0 {
			if n, err := strconv.Atoi(strings.TrimSpace(ctx.Deps[0][0])); err == nil && n > 0 {
				cols = n
			}
		}
		if cols > 16 {
			return nil, nil, fmt.Errorf("table: %d columns is too many", cols)
		}
		kids := make([]*node.Node, 0, cols*2+2)
		for i := 1; i <= cols; i++ {
			kids = append(kids, node.Text("| "), node.Insert(i, fmt.Sprintf("col%d", i)), node.Text(" "))
		}
		kids = append(kids, node.Text("|", strings.Repeat("|---", cols)+"|"))
		return node.Snippet(node.NoIndex, kids...), nil, nil
	}

	return &registry.Definition{
		Opts: opts,
		Template: node.MustCompile(
			node.Insert(1, "2"),
			node.Text(" columns:", ""),
			node.Dynamic(2, gen, []node.Ref{node.Rel(1)}),
		),
	}
}

// rule is a horizontal rule, matched by pattern so "--", "---" and longer
// runs all trigger it.
func rule() *registry.Definition {
	opts := trigger.NewOpts(`-{2,}`)
	opts.Name = "rule"
	opts.Description = "horizontal rule"
	opts.Pattern = true
	opts.WordBoundary = false

	return &registry.Definition{
		Opts: opts,
		Template: node.MustCompile(
			node.Text("---", ""),
		),
	}
}
