package caos

import (
	"errors"

	"github.com/psilLang/caos/pkg/bytecode"
	"github.com/psilLang/caos/pkg/lexer"
	"github.com/psilLang/caos/pkg/types"
)

var errNoTerminator = errors.New("caos: language has no terminating command")

type block struct {
	kind   BlockKind
	opener *Descriptor
	tok    lexer.Token
	entry  int   // first body address, target of loop back-jumps
	fail   int   // placeholder jumped to when the test fails, -1 when none
	ends   []int // placeholders jumping past the whole block
	elsed  bool
}

type labelRef struct {
	name string
	at   int
	tok  lexer.Token
}

type compiler struct {
	lang   *Language
	lex    *lexer.Lexer
	w      *bytecode.Writer
	smap   *bytecode.SourceMap
	blocks []*block
	labels map[string]int
	refs   []labelRef
}

// Compile translates one script into a unit. Compiling seals the language.
func (l *Language) Compile(text string) (*bytecode.Unit, error) {
	return l.CompileClassified(text, types.Classifier{})
}

// CompileClassified compiles text into a unit tagged with class.
func (l *Language) CompileClassified(text string, class types.Classifier) (*bytecode.Unit, error) {
	l.Seal()
	c := &compiler{
		lang:   l,
		lex:    lexer.New(text),
		w:      bytecode.NewWriter(),
		smap:   &bytecode.SourceMap{},
		labels: make(map[string]int),
	}
	if err := c.run(); err != nil {
		return nil, err
	}
	return bytecode.NewUnit(c.w.Code(), c.smap, text, class), nil
}

// Recompiler adapts the language for bytecode.Unmarshal.
func (l *Language) Recompiler() bytecode.Recompiler {
	return l.CompileClassified
}

func (c *compiler) errorAt(tok lexer.Token, code CompileCode, args ...any) error {
	return &CompileError{
		Code:    code,
		Args:    args,
		Token:   tok.Raw,
		Offset:  tok.Offset,
		Line:    tok.Line,
		Column:  tok.Column,
		catalog: c.lang.catalog,
	}
}

// unexpected reports tok where something of kind want should have been.
func (c *compiler) unexpected(tok lexer.Token, want string) error {
	switch tok.Kind {
	case lexer.EOF:
		return c.errorAt(tok, CompUnexpectedEnd, want)
	case lexer.Error:
		return c.badLiteral(tok)
	}
	return c.errorAt(tok, CompExpected, want, tok.Raw)
}

func (c *compiler) badLiteral(tok lexer.Token) error {
	if tok.Raw != "" {
		return c.errorAt(tok, CompBadLiteral, tok.Raw)
	}
	return c.errorAt(tok, CompBadLiteral, tok.Err)
}

func (c *compiler) run() error {
	for {
		tok := c.lex.Next()
		switch tok.Kind {
		case lexer.EOF:
			return c.finish(tok)
		case lexer.Symbol:
		default:
			return c.unexpected(tok, "command")
		}
		d, ok := c.lang.Lookup(KindCommand, tok.Text)
		if !ok {
			return c.errorAt(tok, CompUnknownCommand, tok.Text)
		}
		if err := c.command(d, tok); err != nil {
			return err
		}
	}
}

func (c *compiler) command(d *Descriptor, tok lexer.Token) error {
	c.smap.Add(c.w.Len(), tok.Offset)
	switch d.Special.Role {
	case RoleOpen:
		return c.open(d, tok)
	case RoleAlternative:
		return c.alternative(d, tok)
	case RoleElse:
		return c.otherwise(d, tok)
	case RoleClose:
		return c.close(d, tok)
	case RoleLabel:
		return c.label(d, tok)
	case RoleReturn:
		for _, b := range c.blocks {
			if b.kind != BlockConditional {
				return c.errorAt(tok, CompReturnInBlock, b.kind.String())
			}
		}
	}
	_, err := c.instruction(d, tok)
	return err
}

// instruction emits d's opcode and operands, returning the positions of
// any address placeholders in order.
func (c *compiler) instruction(d *Descriptor, tok lexer.Token) ([]int, error) {
	c.w.Op(d.id)
	return c.operands(d, tok)
}

func (c *compiler) operands(d *Descriptor, tok lexer.Token) ([]int, error) {
	if len(d.Sub) > 0 {
		next := c.lex.Next()
		if next.Kind != lexer.Symbol {
			return nil, c.unexpected(next, "sub-command")
		}
		sub, ok := d.subCommand(next.Text)
		if !ok {
			return nil, c.errorAt(next, CompUnknownSub, next.Text, d.Name)
		}
		c.w.Op(sub.id)
		d = sub
	}

	var addrs []int
	for _, p := range d.Params {
		var err error
		switch p {
		case ParamNumber, ParamGeneric, ParamString, ParamAgent:
			err = c.rvalue(p)
		case ParamVariable:
			err = c.variable()
		case ParamBytes:
			err = c.byteString()
		case ParamCondition:
			err = c.condition()
		case ParamLabel:
			err = c.labelRef()
		case ParamAddr:
			addrs = append(addrs, c.w.Placeholder())
		}
		if err != nil {
			return nil, err
		}
	}
	return addrs, nil
}

// producer kinds tried for each rvalue param, before the variant and
// variable tables which every param accepts.
var producerKinds = map[Param][]Kind{
	ParamNumber:  {KindNumber},
	ParamString:  {KindString},
	ParamAgent:   {KindAgent},
	ParamGeneric: {KindNumber, KindString, KindAgent},
}

var kindTags = [numKinds]bytecode.Tag{
	KindNumber:   bytecode.TagNumber,
	KindString:   bytecode.TagText,
	KindAgent:    bytecode.TagAgent,
	KindVariant:  bytecode.TagVariant,
	KindVariable: bytecode.TagVar,
}

func (c *compiler) rvalue(p Param) error {
	tok := c.lex.Next()
	numeric := p == ParamNumber || p == ParamGeneric
	switch tok.Kind {
	case lexer.Integer:
		if !numeric {
			return c.unexpected(tok, p.String())
		}
		c.w.Tag(bytecode.TagInt)
		c.w.Int(tok.Int)
		return nil
	case lexer.Float:
		if !numeric {
			return c.unexpected(tok, p.String())
		}
		c.w.Tag(bytecode.TagFloat)
		c.w.Float(tok.Float)
		return nil
	case lexer.String:
		if p != ParamString && p != ParamGeneric {
			return c.unexpected(tok, p.String())
		}
		c.w.Tag(bytecode.TagString)
		c.w.String(tok.Text)
		return nil
	case lexer.Symbol:
	default:
		return c.unexpected(tok, p.String())
	}

	for _, kind := range append(producerKinds[p], KindVariant) {
		if d, ok := c.lang.Lookup(kind, tok.Text); ok {
			c.w.Tag(kindTags[kind])
			_, err := c.instruction(d, tok)
			return err
		}
	}
	if d, slot, ok := c.lang.lookupVariable(tok.Text); ok {
		c.w.Tag(bytecode.TagVar)
		return c.access(d, slot, tok)
	}
	return c.errorAt(tok, CompExpected, p.String(), tok.Raw)
}

func (c *compiler) variable() error {
	tok := c.lex.Next()
	if tok.Kind != lexer.Symbol {
		return c.unexpected(tok, "variable")
	}
	d, slot, ok := c.lang.lookupVariable(tok.Text)
	if !ok {
		if len(tok.Text) == 4 {
			if prefix, found := c.lang.Lookup(KindVariable, tok.Text[:2]); found && prefix.Slotted {
				return c.errorAt(tok, CompSlotName, tok.Raw)
			}
		}
		return c.errorAt(tok, CompExpected, "variable", tok.Raw)
	}
	c.w.Tag(bytecode.TagVar)
	return c.access(d, slot, tok)
}

func (c *compiler) access(d *Descriptor, slot int, tok lexer.Token) error {
	c.w.Op(d.id)
	if d.Slotted {
		c.w.Byte(byte(slot))
	}
	_, err := c.operands(d, tok)
	return err
}

func (c *compiler) byteString() error {
	tok := c.lex.Next()
	if tok.Kind != lexer.ByteString {
		return c.unexpected(tok, "byte-string")
	}
	if len(tok.Bytes) > bytecode.MaxBytes {
		return c.errorAt(tok, CompByteLength, len(tok.Bytes), bytecode.MaxBytes)
	}
	out := make([]byte, len(tok.Bytes))
	for i, v := range tok.Bytes {
		if v < 0 || v > 255 {
			return c.errorAt(tok, CompByteRange, v)
		}
		out[i] = byte(v)
	}
	c.w.Bytes(out)
	return nil
}

// condition compiles `value cmp value {(and|or) value cmp value}`.
func (c *compiler) condition() error {
	for {
		if err := c.rvalue(ParamGeneric); err != nil {
			return err
		}
		tok := c.lex.Next()
		if tok.Kind != lexer.Comparator {
			return c.unexpected(tok, "comparator")
		}
		c.w.Byte(bytecode.CmpEQ + byte(tok.Cmp))
		if err := c.rvalue(ParamGeneric); err != nil {
			return err
		}

		tok = c.lex.Next()
		if tok.Kind != lexer.Logical {
			c.lex.Backup()
			c.w.Byte(bytecode.LogicEnd)
			return nil
		}
		if tok.Logic == lexer.And {
			c.w.Byte(bytecode.LogicAnd)
		} else {
			c.w.Byte(bytecode.LogicOr)
		}
	}
}

func (c *compiler) labelRef() error {
	tok := c.lex.Next()
	if tok.Kind != lexer.Symbol {
		return c.unexpected(tok, "label")
	}
	c.refs = append(c.refs, labelRef{name: tok.Text, at: c.w.Placeholder(), tok: tok})
	return nil
}

func (c *compiler) top() *block {
	if len(c.blocks) == 0 {
		return nil
	}
	return c.blocks[len(c.blocks)-1]
}

func (c *compiler) open(d *Descriptor, tok lexer.Token) error {
	addrs, err := c.instruction(d, tok)
	if err != nil {
		return err
	}
	b := &block{kind: d.Special.Block, opener: d, tok: tok, entry: c.w.Len(), fail: -1}
	if len(addrs) > 0 {
		b.fail = addrs[0]
	}
	c.blocks = append(c.blocks, b)
	return nil
}

func (c *compiler) alternative(d *Descriptor, tok lexer.Token) error {
	b := c.top()
	if b == nil || b.kind != d.Special.Block || b.elsed {
		return c.errorAt(tok, CompUnbalanced, tok.Text, d.Special.Block.String())
	}
	addrs, err := c.instruction(d, tok)
	if err != nil {
		return err
	}
	b.ends = append(b.ends, addrs[0])

	// the previous test now fails into a fresh test of the same kind
	c.w.Patch(b.fail, c.w.Len())
	c.smap.Add(c.w.Len(), tok.Offset)
	addrs, err = c.instruction(b.opener, tok)
	if err != nil {
		return err
	}
	b.fail = addrs[0]
	return nil
}

func (c *compiler) otherwise(d *Descriptor, tok lexer.Token) error {
	b := c.top()
	if b == nil || b.kind != d.Special.Block || b.elsed {
		return c.errorAt(tok, CompUnbalanced, tok.Text, d.Special.Block.String())
	}
	addrs, err := c.instruction(d, tok)
	if err != nil {
		return err
	}
	b.ends = append(b.ends, addrs[0])
	c.w.Patch(b.fail, c.w.Len())
	b.fail = -1
	b.elsed = true
	return nil
}

func (c *compiler) close(d *Descriptor, tok lexer.Token) error {
	b := c.top()
	if b == nil || b.kind != d.Special.Block {
		return c.errorAt(tok, CompUnbalanced, tok.Text, d.Special.Block.String())
	}
	at := c.w.Len()
	addrs, err := c.instruction(d, tok)
	if err != nil {
		return err
	}
	switch b.kind {
	case BlockConditional:
		if b.fail >= 0 {
			c.w.Patch(b.fail, at)
		}
		for _, end := range b.ends {
			c.w.Patch(end, at)
		}
	default:
		c.w.Patch(addrs[0], b.entry)
		if b.fail >= 0 {
			c.w.Patch(b.fail, c.w.Len())
		}
	}
	c.blocks = c.blocks[:len(c.blocks)-1]
	return nil
}

func (c *compiler) label(d *Descriptor, tok lexer.Token) error {
	name := c.lex.Next()
	if name.Kind != lexer.Symbol {
		return c.unexpected(name, "label")
	}
	if b := c.top(); b != nil {
		return c.errorAt(tok, CompLabelInBlock, name.Text, b.kind.String())
	}
	if _, dup := c.labels[name.Text]; dup {
		return c.errorAt(name, CompDuplicateLabel, name.Text)
	}
	if _, err := c.instruction(d, tok); err != nil {
		return err
	}
	c.labels[name.Text] = c.w.Len()
	return nil
}

func (c *compiler) finish(eof lexer.Token) error {
	if b := c.top(); b != nil {
		return c.errorAt(b.tok, CompUnterminated, b.tok.Text)
	}
	term := c.lang.terminatorDescriptor()
	if term == nil {
		return errNoTerminator
	}
	c.smap.Add(c.w.Len(), eof.Offset)
	if _, err := c.instruction(term, eof); err != nil {
		return err
	}
	for _, ref := range c.refs {
		addr, ok := c.labels[ref.name]
		if !ok {
			return c.errorAt(ref.tok, CompUndefinedLabel, ref.name)
		}
		c.w.Patch(ref.at, addr)
	}
	return nil
}
