package layout

import (
	"fmt"
	"strings"

	"github.com/ByLCY/quire/diag"
	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/node"
	"github.com/ByLCY/quire/pack"
	"github.com/ByLCY/quire/params"
	"github.com/ByLCY/quire/scaled"
)

// defaultRuleHeight is the height of a rule without an explicit one.
const defaultRuleHeight = 26214 // 0.4pt

// block runs the statements of a body block. On the main vertical list the
// page builder runs after each statement.
func (b *builder) block(blk *dsl.Block) error {
	for _, stmt := range blk.Statements {
		var err error
		switch {
		case stmt.Assignment != nil:
			err = b.assign(stmt.Assignment)
		case stmt.Text != nil:
			var s string
			if s, err = b.text(string(stmt.Text.Value)); err == nil {
				err = b.paragraph(nil, []string{s}, true)
			}
			if err != nil {
				err = at(stmt.Text.Pos, err)
			}
		case stmt.Command != nil:
			err = b.command(stmt.Command)
		}
		if err != nil {
			return err
		}
		if b.onMain() {
			if err := b.pages.BuildPage(b.ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) onMain() bool { return b.target == b.pages.Contributions() }

func (b *builder) command(cmd *dsl.Command) error {
	var err error
	switch cmd.Name {
	case "par":
		err = b.par(cmd)
	case "font":
		err = b.selectFont(cmd)
	case "vskip":
		err = b.vskip(cmd)
	case "vfil":
		b.target.Append(node.NewGlue(node.FilGlue))
	case "vfill":
		b.target.Append(node.NewGlue(node.FillGlue))
	case "kern":
		err = b.kern(cmd)
	case "penalty":
		err = b.penalty(cmd)
	case "eject":
		b.target.Append(node.NewPenalty(scaled.EjectPenalty))
	case "mark":
		err = b.mark(cmd)
	case "rule", "hrule":
		err = b.rule(cmd)
	case "hbox":
		err = b.hbox(cmd)
	case "vbox":
		err = b.vbox(cmd)
	case "insert":
		err = b.insert(cmd)
	case "group":
		err = b.group(cmd.Block)
	case "setbox":
		err = b.setbox(cmd)
	case "box":
		err = b.box(cmd)
	case "vsplit":
		err = b.vsplit(cmd)
	default:
		return at(cmd.Pos, fmt.Errorf("%w %q", ErrUnknownCommand, cmd.Name))
	}
	if err != nil {
		return at(cmd.Pos, fmt.Errorf("%s: %w", cmd.Name, err))
	}
	return nil
}

// args joins the raw arguments from i on, "6pt plus 2pt" style.
func args(cmd *dsl.Command, i int) string {
	raw := make([]string, 0, len(cmd.Args))
	for _, a := range cmd.Args[min(i, len(cmd.Args)):] {
		raw = append(raw, a.Raw)
	}
	return strings.Join(raw, " ")
}

// par typesets a paragraph:
//
//	par [noindent] [font] "text" ...
//	par { "text" "more text" }
func (b *builder) par(cmd *dsl.Command) error {
	indent := true
	var font *int
	var parts []string
	for _, a := range cmd.Args {
		switch {
		case a.Type == "String":
			parts = append(parts, a.Value)
		case a.Value == "noindent":
			indent = false
		case a.Value == "indent":
			indent = true
		default:
			i, ok := b.fontIndex[a.Value]
			if !ok {
				return fmt.Errorf("%w %q", ErrUnknownFont, a.Value)
			}
			font = &i
		}
	}
	if cmd.Block != nil {
		for _, stmt := range cmd.Block.Statements {
			if stmt.Text == nil {
				return fmt.Errorf("%w: a paragraph holds only text", ErrBadArgs)
			}
			parts = append(parts, string(stmt.Text.Value))
		}
	}
	for i, p := range parts {
		s, err := b.text(p)
		if err != nil {
			return err
		}
		parts[i] = s
	}
	return b.paragraph(font, parts, indent)
}

// paragraph contributes \parskip, then breaks the text into lines.
func (b *builder) paragraph(font *int, parts []string, indent bool) error {
	if font != nil {
		saved := b.font
		b.font = *font
		defer func() { b.font = saved }()
	}
	if b.onMain() || !b.target.Empty() {
		b.target.Append(node.NewParamGlue(b.params.Glue(params.ParSkip), node.ParSkipGlue))
	}
	var l node.List
	if indent {
		box := node.NewHList()
		box.Width = b.params.Dimen(params.ParIndent)
		l.Append(box)
	}
	l.Append(b.hlist(strings.Join(parts, " ")))
	res, err := b.lines.LineBreak(b.ctx, l.Head, b.target, b.params.Int(params.WidowPenalty))
	if err != nil {
		return err
	}
	b.res.Paragraphs = append(b.res.Paragraphs, ParagraphInfo{Lines: res.Lines, Pass: res.Pass})
	return nil
}

// hlist converts text to characters of the current font separated by the
// font's interword glue. An empty discretionary follows each explicit hyphen.
func (b *builder) hlist(text string) node.Node {
	face := b.faces[b.font]
	w, stretch, shrink := face.Space()
	space := node.NewSpec(w, stretch, node.Normal, shrink, node.Normal)
	var l node.List
	for i, word := range strings.Fields(text) {
		if i > 0 {
			l.Append(node.NewGlue(space))
		}
		for _, r := range word {
			cw, ch, cd, ok := face.Glyph(r)
			if !ok {
				diag.Logger().Warn("missing character", "font", b.fonts[b.font].Name, "char", string(r))
				continue
			}
			l.Append(node.NewChar(b.font, r, cw, ch, cd))
			if r == '-' {
				l.Append(&node.Disc{})
			}
		}
	}
	return l.Head
}

func (b *builder) selectFont(cmd *dsl.Command) error {
	if len(cmd.Args) != 1 {
		return fmt.Errorf("%w: font needs a name", ErrBadArgs)
	}
	i, ok := b.fontIndex[cmd.Args[0].Value]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownFont, cmd.Args[0].Value)
	}
	b.font = i
	return nil
}

func (b *builder) vskip(cmd *dsl.Command) error {
	spec, err := ParseGlue(args(cmd, 0))
	if err != nil {
		return err
	}
	b.target.Append(node.NewGlue(spec))
	return nil
}

func (b *builder) kern(cmd *dsl.Command) error {
	w, err := ParseDimen(args(cmd, 0))
	if err != nil {
		return err
	}
	k := node.NewKern(w)
	k.Subtype = node.KernExplicit
	b.target.Append(k)
	return nil
}

func (b *builder) penalty(cmd *dsl.Command) error {
	n, err := parseInt(args(cmd, 0))
	if err != nil {
		return err
	}
	b.target.Append(node.NewPenalty(n))
	return nil
}

func (b *builder) mark(cmd *dsl.Command) error {
	if len(cmd.Args) != 1 {
		return fmt.Errorf("%w: mark needs one text", ErrBadArgs)
	}
	s, err := b.text(cmd.Args[0].Value)
	if err != nil {
		return err
	}
	b.target.Append(&node.Mark{Text: s})
	return nil
}

// rule appends a horizontal rule: rule [height d] [depth d] [width d].
// Its width is running unless given.
func (b *builder) rule(cmd *dsl.Command) error {
	r := node.NewRule()
	r.Height = defaultRuleHeight
	r.Depth = 0
	for i := 0; i < len(cmd.Args); i += 2 {
		if i+1 >= len(cmd.Args) {
			return fmt.Errorf("%w: %s needs a value", ErrBadArgs, cmd.Args[i].Value)
		}
		d, err := ParseDimen(cmd.Args[i+1].Raw)
		if err != nil {
			return err
		}
		switch cmd.Args[i].Value {
		case "height":
			r.Height = d
		case "depth":
			r.Depth = d
		case "width":
			r.Width = d
		default:
			return fmt.Errorf("%w: unknown rule key %s", ErrBadArgs, cmd.Args[i].Value)
		}
	}
	b.target.Append(r)
	b.target.PrevDepth = node.IgnoreDepth
	return nil
}

// size reads an optional "to <dimen>" at args[i:].
func size(cmd *dsl.Command, i int) (scaled.Scaled, pack.Mode, error) {
	if len(cmd.Args) <= i || cmd.Args[i].Value != "to" {
		return pack.Natural, pack.Additional, nil
	}
	if len(cmd.Args) != i+2 {
		return 0, 0, fmt.Errorf("%w: to needs a dimension", ErrBadArgs)
	}
	d, err := ParseDimen(cmd.Args[i+1].Raw)
	if err != nil {
		return 0, 0, err
	}
	return d, pack.Exactly, nil
}

// hbox appends one line of text: hbox "text" [to <dimen>].
func (b *builder) hbox(cmd *dsl.Command) error {
	if len(cmd.Args) == 0 || cmd.Args[0].Type != "String" {
		return fmt.Errorf("%w: hbox needs a text", ErrBadArgs)
	}
	s, err := b.text(cmd.Args[0].Value)
	if err != nil {
		return err
	}
	w, mode, err := size(cmd, 1)
	if err != nil {
		return err
	}
	box, _ := b.packer.Hpack(b.hlist(s), w, mode, nil)
	b.packer.AppendToVList(b.target, box)
	return nil
}

// inner builds blk into a fresh vertical list inside a group.
func (b *builder) inner(blk *dsl.Block) (node.Node, error) {
	if blk == nil {
		return nil, nil
	}
	saved := b.target
	b.target = node.NewVListBuilder()
	defer func() { b.target = saved }()
	if err := b.group(blk); err != nil {
		return nil, err
	}
	return b.target.Head, nil
}

func (b *builder) vboxOf(cmd *dsl.Command, i int) (*node.Box, error) {
	h, mode, err := size(cmd, i)
	if err != nil {
		return nil, err
	}
	list, err := b.inner(cmd.Block)
	if err != nil {
		return nil, err
	}
	box, _, err := b.packer.Vpack(list, h, mode, b.params.Dimen(params.BoxMaxDepth))
	return box, err
}

// vbox appends a box built from a block: vbox [to <dimen>] { ... }.
func (b *builder) vbox(cmd *dsl.Command) error {
	box, err := b.vboxOf(cmd, 0)
	if err != nil {
		return err
	}
	b.packer.AppendToVList(b.target, box)
	return nil
}

// insert appends floating material of class n: insert n { ... }.
func (b *builder) insert(cmd *dsl.Command) error {
	if len(cmd.Args) != 1 {
		return fmt.Errorf("%w: insert needs a class", ErrBadArgs)
	}
	n, err := register(cmd.Args[0].Value)
	if err != nil {
		return err
	}
	if n == 255 {
		return fmt.Errorf("%w: insert255 is not allowed", ErrBadArgs)
	}
	list, err := b.inner(cmd.Block)
	if err != nil {
		return err
	}
	box, _, err := b.packer.Vpack(list, pack.Natural, pack.Additional, scaled.MaxDimen)
	if err != nil {
		return err
	}
	ins := &node.Ins{
		Class:     n,
		Height:    box.Height + box.Depth,
		Depth:     b.params.Dimen(params.SplitMaxDepth),
		FloatCost: b.params.Int(params.FloatingPenalty),
		SplitTop:  b.params.Glue(params.SplitTopSkip).AddRef(),
		List:      box.List,
	}
	box.List = nil
	b.target.Append(ins)
	b.useClass(n)
	return nil
}

func (b *builder) useClass(n int) {
	for _, c := range b.classes {
		if c == n {
			return
		}
	}
	b.classes = append(b.classes, n)
}

// group runs blk with its assignments and font changes local to it.
func (b *builder) group(blk *dsl.Block) error {
	if blk == nil {
		return nil
	}
	if err := b.params.Begin(); err != nil {
		return err
	}
	font := b.font
	err := b.block(blk)
	b.font = font
	if endErr := b.params.End(); err == nil {
		err = endErr
	}
	return err
}

// setbox fills a box register: setbox n [to <dimen>] { ... }.
func (b *builder) setbox(cmd *dsl.Command) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("%w: setbox needs a register", ErrBadArgs)
	}
	n, err := register(cmd.Args[0].Value)
	if err != nil {
		return err
	}
	box, err := b.vboxOf(cmd, 1)
	if err != nil {
		return err
	}
	b.params.SetBox(n, box)
	return nil
}

// box appends the contents of a box register and leaves it void.
func (b *builder) box(cmd *dsl.Command) error {
	if len(cmd.Args) != 1 {
		return fmt.Errorf("%w: box needs a register", ErrBadArgs)
	}
	n, err := register(cmd.Args[0].Value)
	if err != nil {
		return err
	}
	if box := b.params.TakeBox(n); box != nil {
		b.packer.AppendToVList(b.target, box)
	}
	return nil
}

// vsplit appends the top of a box register: vsplit n to <dimen>.
func (b *builder) vsplit(cmd *dsl.Command) error {
	if len(cmd.Args) != 3 || cmd.Args[1].Value != "to" {
		return fmt.Errorf("%w: vsplit n to <dimen>", ErrBadArgs)
	}
	n, err := register(cmd.Args[0].Value)
	if err != nil {
		return err
	}
	h, err := ParseDimen(cmd.Args[2].Raw)
	if err != nil {
		return err
	}
	box, marks, err := b.splitter.VSplit(n, h)
	if err != nil {
		return err
	}
	if box == nil {
		return nil
	}
	if marks.Found {
		diag.Logger().Debug("split marks", "box", n, "first", marks.First, "bot", marks.Bot)
	}
	b.packer.AppendToVList(b.target, box)
	return nil
}
